// internal/instrument/specan/fsw.go
package specan

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"instrument-service/internal/scpi"
)

// State recall on the analyzer can stall the firmware well past the normal
// command timeout, so RecallState runs under its own extended window.
const recallTimeout = 30 * time.Second

const opcPoll = 200 * time.Millisecond

// FSW drives the R&S FSW signal and spectrum analyzers.
type FSW struct {
	*scpi.Session
}

// New builds an FSW adapter on the vendor session layer when a network
// address is supplied.
func New(addr scpi.Address, opts scpi.Options, logger *zap.Logger) (scpi.Instrument, error) {
	if addr.Host != "" {
		opts.HiSLIP = true
	}
	return &FSW{Session: scpi.NewSession(addr, opts, logger)}, nil
}

// RecallState loads a saved instrument state file and waits for the
// analyzer to settle. The command timeout is raised for the duration of the
// recall and restored afterwards, whether the recall succeeds or not.
func (a *FSW) RecallState(name string) error {
	return a.WithTimeout(recallTimeout, func() error {
		if err := a.Write(fmt.Sprintf("MMEM:LOAD:STAT 1,'%s'", name)); err != nil {
			return err
		}
		return a.WaitComplete(opcPoll)
	})
}

// SetCenterFrequency programs the center frequency in Hz.
func (a *FSW) SetCenterFrequency(hz float64) error {
	return a.Write(fmt.Sprintf("FREQ:CENT %G", hz))
}

// SetReferenceLevel programs the reference level in dBm.
func (a *FSW) SetReferenceLevel(dbm float64) error {
	return a.Write(fmt.Sprintf("DISP:WIND:TRAC:Y:SCAL:RLEV %G", dbm))
}

// AutoLevel runs the automatic level routine and waits for it to finish.
func (a *FSW) AutoLevel() error {
	if err := a.Write("ADJ:LEV"); err != nil {
		return err
	}
	return a.WaitComplete(opcPoll)
}

// MeasureEVM fetches the averaged EVM summary result in percent.
func (a *FSW) MeasureEVM() (float64, error) {
	return a.queryFloat("FETC:SUMM:EVM:AVER?")
}

// MeasurePower fetches the averaged power summary result in dBm.
func (a *FSW) MeasurePower() (float64, error) {
	return a.queryFloat("FETC:SUMM:POW:AVER?")
}

// MarkerPeak places marker 1 on the trace peak and returns its level.
func (a *FSW) MarkerPeak() (float64, error) {
	if err := a.Write("CALC:MARK1:MAX"); err != nil {
		return 0, err
	}
	return a.queryFloat("CALC:MARK1:Y?")
}

func (a *FSW) queryFloat(cmd string) (float64, error) {
	resp, err := a.Query(cmd)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(resp), 64)
}
