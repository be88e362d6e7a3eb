// internal/model/instrument.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// InstrumentState mirrors the connection state machine of a bench session
type InstrumentState string

const (
	InstrumentDisconnected InstrumentState = "DISCONNECTED"
	InstrumentConnecting   InstrumentState = "CONNECTING"
	InstrumentReady        InstrumentState = "READY"
	InstrumentFaulted      InstrumentState = "FAULTED"
)

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]interface{}

func (j *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// BenchInstrument is the API view of one configured bench instrument
type BenchInstrument struct {
	Name         string          `json:"name"`
	Adapter      string          `json:"adapter,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Model        string          `json:"model,omitempty"`
	SerialNumber string          `json:"serial_number,omitempty"`
	Firmware     string          `json:"firmware,omitempty"`
	Address      string          `json:"address"`
	Backend      string          `json:"backend,omitempty"`
	State        InstrumentState `json:"state"`
	LastSeen     *time.Time      `json:"last_seen,omitempty"`
}
