// internal/repository/interfaces.go
package repository

import (
	"context"
	"time"

	"instrument-service/internal/model"

	"github.com/google/uuid"
)

// SweepRepository defines sweep run data access operations
type SweepRepository interface {
	Create(ctx context.Context, run *model.SweepRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SweepRun, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.SweepStatus, errorInfo model.JSONObject) error
	MarkStarted(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkCompleted(ctx context.Context, id uuid.UUID, status model.SweepStatus, at time.Time) error

	List(ctx context.Context, filter *SweepFilter) ([]*model.SweepRun, int, error)
	DeleteOldRuns(ctx context.Context, olderThan time.Time) (int64, error)
}

// MeasurementRepository defines measurement point data access operations
type MeasurementRepository interface {
	Create(ctx context.Context, m *model.Measurement) error
	ListBySweep(ctx context.Context, sweepID uuid.UUID) ([]*model.Measurement, error)
	CountBySweep(ctx context.Context, sweepID uuid.UUID) (int, error)
}

// SweepFilter represents sweep listing filters
type SweepFilter struct {
	Status    *model.SweepStatus `json:"status,omitempty"`
	Generator *string            `json:"generator,omitempty"`
	Analyzer  *string            `json:"analyzer,omitempty"`
	StartDate *time.Time         `json:"start_date,omitempty"`
	EndDate   *time.Time         `json:"end_date,omitempty"`
	Page      int                `json:"page"`
	PerPage   int                `json:"per_page"`
	SortBy    string             `json:"sort_by"`
	SortOrder string             `json:"sort_order"`
}

// Normalize clamps paging and sorting to safe values.
func (f *SweepFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 200 {
		f.PerPage = 50
	}
	switch f.SortBy {
	case "created_at", "name", "status":
	default:
		f.SortBy = "created_at"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}
