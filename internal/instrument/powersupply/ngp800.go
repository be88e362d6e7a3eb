// internal/instrument/powersupply/ngp800.go
package powersupply

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"instrument-service/internal/scpi"
)

// NGP800 drives the R&S NGP800 series multi-channel power supplies. All
// channel operations select the target channel first; adapters assume a
// single owner per instrument, so select-then-command is not interleaved.
type NGP800 struct {
	*scpi.Session
}

// New builds an NGP800 adapter. R&S supplies reachable over the network are
// driven through the vendor session layer.
func New(addr scpi.Address, opts scpi.Options, logger *zap.Logger) (scpi.Instrument, error) {
	if addr.Host != "" {
		opts.HiSLIP = true
	}
	return &NGP800{Session: scpi.NewSession(addr, opts, logger)}, nil
}

func (p *NGP800) selectChannel(channel int) error {
	return p.Write(fmt.Sprintf("INST:NSEL %d", channel))
}

// SetVoltage programs the output voltage of a channel in volts.
func (p *NGP800) SetVoltage(channel int, volts float64) error {
	if err := p.selectChannel(channel); err != nil {
		return err
	}
	return p.Write(fmt.Sprintf("SOUR:VOLT %G", volts))
}

// SetCurrentLimit programs the current limit of a channel in amperes.
func (p *NGP800) SetCurrentLimit(channel int, amps float64) error {
	if err := p.selectChannel(channel); err != nil {
		return err
	}
	return p.Write(fmt.Sprintf("SOUR:CURR %G", amps))
}

// SetOverVoltageProtection arms the OVP threshold of a channel in volts.
func (p *NGP800) SetOverVoltageProtection(channel int, volts float64) error {
	if err := p.selectChannel(channel); err != nil {
		return err
	}
	if err := p.Write(fmt.Sprintf("SOUR:VOLT:PROT:LEV %G", volts)); err != nil {
		return err
	}
	return p.Write("SOUR:VOLT:PROT ON")
}

// SetOutput switches a single channel output on or off.
func (p *NGP800) SetOutput(channel int, on bool) error {
	if err := p.selectChannel(channel); err != nil {
		return err
	}
	return p.Write("OUTP " + onOff(on))
}

// SetMasterOutput switches the general output, gating all channels at once.
func (p *NGP800) SetMasterOutput(on bool) error {
	return p.Write("OUTP:GEN " + onOff(on))
}

// MeasureVoltage reads back the actual output voltage of a channel.
func (p *NGP800) MeasureVoltage(channel int) (float64, error) {
	if err := p.selectChannel(channel); err != nil {
		return 0, err
	}
	return p.queryFloat("MEAS:VOLT?")
}

// MeasureCurrent reads back the actual output current of a channel.
func (p *NGP800) MeasureCurrent(channel int) (float64, error) {
	if err := p.selectChannel(channel); err != nil {
		return 0, err
	}
	return p.queryFloat("MEAS:CURR?")
}

func (p *NGP800) queryFloat(cmd string) (float64, error) {
	resp, err := p.Query(cmd)
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
