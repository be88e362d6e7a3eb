// internal/instrument/specan/fsw_test.go
package specan

import (
	"context"
	"reflect"
	"testing"
	"time"

	"instrument-service/internal/scpi"
)

func newSimAnalyzer(t *testing.T, responses map[string]string) *FSW {
	t.Helper()

	opts := scpi.Options{Simulate: true, SimResponses: responses, Timeout: 5 * time.Second}
	inst, err := New(scpi.Address{Host: "fsw.lab"}, opts, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	fsw := inst.(*FSW)
	if err := fsw.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	return fsw
}

func TestFSWRecallStateWaitsAndRestoresTimeout(t *testing.T) {
	fsw := newSimAnalyzer(t, nil)
	defer fsw.Close()

	if err := fsw.RecallState("lte_dl.dfl"); err != nil {
		t.Fatalf("RecallState returned error: %v", err)
	}

	sim, _ := scpi.Simulated(fsw.Session)
	cmds := sim.Commands()
	want := []string{"MMEM:LOAD:STAT 1,'lte_dl.dfl'", "*OPC?"}
	if got := cmds[len(cmds)-2:]; !reflect.DeepEqual(got, want) {
		t.Fatalf("recall commands = %v, want %v", got, want)
	}

	d, err := fsw.GetTimeout()
	if err != nil {
		t.Fatalf("GetTimeout returned error: %v", err)
	}
	if d != 5*time.Second {
		t.Fatalf("timeout after recall = %v, want restored 5s", d)
	}
}

func TestFSWSummaryMeasurements(t *testing.T) {
	fsw := newSimAnalyzer(t, map[string]string{
		"FETC:SUMM:EVM:AVER?": "2.34",
		"FETC:SUMM:POW:AVER?": "-10.2",
	})
	defer fsw.Close()

	evm, err := fsw.MeasureEVM()
	if err != nil {
		t.Fatalf("MeasureEVM returned error: %v", err)
	}
	if evm != 2.34 {
		t.Fatalf("MeasureEVM = %v, want 2.34", evm)
	}

	pow, err := fsw.MeasurePower()
	if err != nil {
		t.Fatalf("MeasurePower returned error: %v", err)
	}
	if pow != -10.2 {
		t.Fatalf("MeasurePower = %v, want -10.2", pow)
	}
}

func TestFSWMarkerPeak(t *testing.T) {
	fsw := newSimAnalyzer(t, map[string]string{"CALC:MARK1:Y?": "-23.7"})
	defer fsw.Close()

	level, err := fsw.MarkerPeak()
	if err != nil {
		t.Fatalf("MarkerPeak returned error: %v", err)
	}
	if level != -23.7 {
		t.Fatalf("MarkerPeak = %v, want -23.7", level)
	}

	sim, _ := scpi.Simulated(fsw.Session)
	cmds := sim.Commands()
	if cmds[len(cmds)-2] != "CALC:MARK1:MAX" {
		t.Fatalf("marker peak not requested before readout: %v", cmds)
	}
}
