// internal/model/sweep.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SweepStatus represents the lifecycle of a measurement sweep
type SweepStatus string

const (
	SweepPending   SweepStatus = "PENDING"
	SweepRunning   SweepStatus = "RUNNING"
	SweepCompleted SweepStatus = "COMPLETED"
	SweepFailed    SweepStatus = "FAILED"
)

// SweepRun represents one EVM-versus-power sweep across a generator and
// analyzer pair
type SweepRun struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Generator   string          `json:"generator" db:"generator"`
	Analyzer    string          `json:"analyzer" db:"analyzer"`
	FrequencyHz decimal.Decimal `json:"frequency_hz" db:"frequency_hz"`
	StartDBM    decimal.Decimal `json:"start_dbm" db:"start_dbm"`
	StopDBM     decimal.Decimal `json:"stop_dbm" db:"stop_dbm"`
	StepDBM     decimal.Decimal `json:"step_dbm" db:"step_dbm"`
	Status      SweepStatus     `json:"status" db:"status"`
	ErrorInfo   JSONObject      `json:"error_info,omitempty" db:"error_info"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// Measurement is one point of a sweep. Values are decimals so readings
// round-trip through the database without float drift.
type Measurement struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	SweepID    uuid.UUID       `json:"sweep_id" db:"sweep_id"`
	PointIndex int             `json:"point_index" db:"point_index"`
	LevelDBM   decimal.Decimal `json:"level_dbm" db:"level_dbm"`
	EVMPercent decimal.Decimal `json:"evm_percent" db:"evm_percent"`
	PowerDBM   decimal.Decimal `json:"power_dbm" db:"power_dbm"`
	MeasuredAt time.Time       `json:"measured_at" db:"measured_at"`
}

// SweepRequest is the API payload that starts a sweep
type SweepRequest struct {
	Name        string  `json:"name" binding:"required"`
	Generator   string  `json:"generator" binding:"required"`
	Analyzer    string  `json:"analyzer" binding:"required"`
	FrequencyHz float64 `json:"frequency_hz" binding:"required,gt=0"`
	StartDBM    float64 `json:"start_dbm" binding:"required"`
	StopDBM     float64 `json:"stop_dbm" binding:"required"`
	StepDBM     float64 `json:"step_dbm" binding:"required,gt=0"`
}

// NewSweepRun builds a pending run from an API request.
func NewSweepRun(req SweepRequest) *SweepRun {
	return &SweepRun{
		ID:          uuid.New(),
		Name:        req.Name,
		Generator:   req.Generator,
		Analyzer:    req.Analyzer,
		FrequencyHz: decimal.NewFromFloat(req.FrequencyHz),
		StartDBM:    decimal.NewFromFloat(req.StartDBM),
		StopDBM:     decimal.NewFromFloat(req.StopDBM),
		StepDBM:     decimal.NewFromFloat(req.StepDBM),
		Status:      SweepPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// Levels expands the run into the ordered list of generator levels.
func (s *SweepRun) Levels() []decimal.Decimal {
	if !s.StepDBM.IsPositive() {
		return nil
	}
	var levels []decimal.Decimal
	for level := s.StartDBM; level.LessThanOrEqual(s.StopDBM); level = level.Add(s.StepDBM) {
		levels = append(levels, level)
	}
	return levels
}
