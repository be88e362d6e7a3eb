// internal/instrument/powersupply/ngp800_test.go
package powersupply

import (
	"context"
	"reflect"
	"testing"

	"instrument-service/internal/scpi"
)

func newSimSupply(t *testing.T, responses map[string]string) *NGP800 {
	t.Helper()

	opts := scpi.Options{Simulate: true, SimResponses: responses}
	inst, err := New(scpi.Address{Host: "psu.lab"}, opts, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	psu := inst.(*NGP800)
	if err := psu.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	return psu
}

func TestNGP800ChannelProgramming(t *testing.T) {
	psu := newSimSupply(t, nil)
	defer psu.Close()

	if err := psu.SetVoltage(1, 5.5); err != nil {
		t.Fatalf("SetVoltage returned error: %v", err)
	}
	if err := psu.SetCurrentLimit(1, 0.25); err != nil {
		t.Fatalf("SetCurrentLimit returned error: %v", err)
	}
	if err := psu.SetOutput(1, true); err != nil {
		t.Fatalf("SetOutput returned error: %v", err)
	}
	if err := psu.SetMasterOutput(true); err != nil {
		t.Fatalf("SetMasterOutput returned error: %v", err)
	}

	sim, ok := scpi.Simulated(psu.Session)
	if !ok {
		t.Fatalf("session is not simulated")
	}

	want := []string{
		"*CLS",
		"*IDN?",
		"INST:NSEL 1",
		"SOUR:VOLT 5.5",
		"INST:NSEL 1",
		"SOUR:CURR 0.25",
		"INST:NSEL 1",
		"OUTP ON",
		"OUTP:GEN ON",
	}
	if got := sim.Commands(); !reflect.DeepEqual(got, want) {
		t.Fatalf("command stream = %v, want %v", got, want)
	}
}

func TestNGP800Measurements(t *testing.T) {
	psu := newSimSupply(t, map[string]string{
		"MEAS:VOLT?": "5.4987",
		"MEAS:CURR?": "0.1031",
	})
	defer psu.Close()

	v, err := psu.MeasureVoltage(2)
	if err != nil {
		t.Fatalf("MeasureVoltage returned error: %v", err)
	}
	if v != 5.4987 {
		t.Fatalf("MeasureVoltage = %v, want 5.4987", v)
	}

	i, err := psu.MeasureCurrent(2)
	if err != nil {
		t.Fatalf("MeasureCurrent returned error: %v", err)
	}
	if i != 0.1031 {
		t.Fatalf("MeasureCurrent = %v, want 0.1031", i)
	}
}

func TestNGP800ProtectionArmsAfterLevel(t *testing.T) {
	psu := newSimSupply(t, nil)
	defer psu.Close()

	if err := psu.SetOverVoltageProtection(3, 6); err != nil {
		t.Fatalf("SetOverVoltageProtection returned error: %v", err)
	}

	sim, _ := scpi.Simulated(psu.Session)
	cmds := sim.Commands()
	want := []string{"INST:NSEL 3", "SOUR:VOLT:PROT:LEV 6", "SOUR:VOLT:PROT ON"}
	if got := cmds[len(cmds)-3:]; !reflect.DeepEqual(got, want) {
		t.Fatalf("protection commands = %v, want %v", got, want)
	}
}
