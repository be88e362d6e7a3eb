// internal/instrument/signalgen/smw200a.go
package signalgen

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"instrument-service/internal/scpi"
)

// SMW200A drives the R&S SMW200A vector signal generator, RF path A.
type SMW200A struct {
	*scpi.Session
}

// NewSMW200A builds an SMW200A adapter on the vendor session layer when a
// network address is supplied.
func NewSMW200A(addr scpi.Address, opts scpi.Options, logger *zap.Logger) (scpi.Instrument, error) {
	if addr.Host != "" {
		opts.HiSLIP = true
	}
	return &SMW200A{Session: scpi.NewSession(addr, opts, logger)}, nil
}

// SetFrequency programs the CW carrier frequency in Hz.
func (g *SMW200A) SetFrequency(hz float64) error {
	return g.Write(fmt.Sprintf("SOUR1:FREQ:CW %G", hz))
}

// SetLevel programs the RF output level in dBm.
func (g *SMW200A) SetLevel(dbm float64) error {
	return g.Write(fmt.Sprintf("SOUR1:POW:LEV:IMM:AMPL %G", dbm))
}

// Level reads back the programmed RF output level in dBm.
func (g *SMW200A) Level() (float64, error) {
	return queryFloat(g.Session, "SOUR1:POW:LEV:IMM:AMPL?")
}

// SetRFOutput switches the RF A output on or off.
func (g *SMW200A) SetRFOutput(on bool) error {
	return g.Write("OUTP1 " + onOff(on))
}

// SetModulation switches all modulation on path A on or off.
func (g *SMW200A) SetModulation(on bool) error {
	return g.Write("SOUR1:MOD:ALL:STAT " + onOff(on))
}

// SelectNRTestModel loads a 5G NR downlink test model and enables the NR
// baseband.
func (g *SMW200A) SelectNRTestModel(name string) error {
	if err := g.Write(fmt.Sprintf("SOUR1:BB:NR5G:SETT:TMOD:DL '%s'", name)); err != nil {
		return err
	}
	return g.Write("SOUR1:BB:NR5G:STAT ON")
}

// LoadWaveform selects an ARB waveform file and enables the ARB.
func (g *SMW200A) LoadWaveform(path string) error {
	if err := g.Write(fmt.Sprintf("SOUR1:BB:ARB:WAV:SEL '%s'", path)); err != nil {
		return err
	}
	return g.Write("SOUR1:BB:ARB:STAT ON")
}

func queryFloat(s *scpi.Session, cmd string) (float64, error) {
	resp, err := s.Query(cmd)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(resp), 64)
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
