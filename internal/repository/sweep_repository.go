// internal/repository/sweep_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"instrument-service/internal/database"
	"instrument-service/internal/model"
)

// sweepRepository implements SweepRepository interface
type sweepRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSweepRepository creates a new sweep repository
func NewSweepRepository(db *database.DB, logger *zap.Logger) SweepRepository {
	return &sweepRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new sweep run
func (r *sweepRepository) Create(ctx context.Context, run *model.SweepRun) error {
	query := `
		INSERT INTO sweep_runs (
			id, name, generator, analyzer, frequency_hz,
			start_dbm, stop_dbm, step_dbm, status, error_info, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Name, run.Generator, run.Analyzer, run.FrequencyHz,
		run.StartDBM, run.StopDBM, run.StepDBM, run.Status, run.ErrorInfo,
		run.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create sweep run", zap.Error(err), zap.String("sweep_id", run.ID.String()))
		return fmt.Errorf("failed to create sweep run: %w", err)
	}

	r.logger.Info("Sweep run created", zap.String("sweep_id", run.ID.String()), zap.String("name", run.Name))
	return nil
}

// GetByID retrieves a sweep run by its UUID
func (r *sweepRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SweepRun, error) {
	query := `
		SELECT id, name, generator, analyzer, frequency_hz,
			   start_dbm, stop_dbm, step_dbm, status, error_info,
			   created_at, started_at, completed_at
		FROM sweep_runs WHERE id = $1
	`

	run := &model.SweepRun{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Name, &run.Generator, &run.Analyzer, &run.FrequencyHz,
		&run.StartDBM, &run.StopDBM, &run.StepDBM, &run.Status, &run.ErrorInfo,
		&run.CreatedAt, &run.StartedAt, &run.CompletedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sweep run not found with id: %s", id)
		}
		r.logger.Error("Failed to get sweep run", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get sweep run: %w", err)
	}

	return run, nil
}

// UpdateStatus updates a sweep run status, with optional error context
func (r *sweepRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SweepStatus, errorInfo model.JSONObject) error {
	query := `
		UPDATE sweep_runs SET status = $2, error_info = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, status, errorInfo)
	if err != nil {
		r.logger.Error("Failed to update sweep status", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to update sweep status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("sweep run not found with id: %s", id)
	}

	return nil
}

// MarkStarted records the sweep start time and flips it to RUNNING
func (r *sweepRepository) MarkStarted(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE sweep_runs SET status = $2, started_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, model.SweepRunning, at)
	if err != nil {
		r.logger.Error("Failed to mark sweep started", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to mark sweep started: %w", err)
	}
	return nil
}

// MarkCompleted records the terminal status and completion time
func (r *sweepRepository) MarkCompleted(ctx context.Context, id uuid.UUID, status model.SweepStatus, at time.Time) error {
	query := `
		UPDATE sweep_runs SET status = $2, completed_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, at)
	if err != nil {
		r.logger.Error("Failed to mark sweep completed", zap.Error(err), zap.String("id", id.String()))
		return fmt.Errorf("failed to mark sweep completed: %w", err)
	}
	return nil
}

// List retrieves sweep runs with filtering and pagination
func (r *sweepRepository) List(ctx context.Context, filter *SweepFilter) ([]*model.SweepRun, int, error) {
	if filter == nil {
		filter = &SweepFilter{}
	}
	filter.Normalize()

	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Generator != nil {
		conditions = append(conditions, fmt.Sprintf("generator = $%d", argIdx))
		args = append(args, *filter.Generator)
		argIdx++
	}
	if filter.Analyzer != nil {
		conditions = append(conditions, fmt.Sprintf("analyzer = $%d", argIdx))
		args = append(args, *filter.Analyzer)
		argIdx++
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *filter.EndDate)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sweep_runs WHERE %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sweep runs: %w", err)
	}

	offset := (filter.Page - 1) * filter.PerPage
	listQuery := fmt.Sprintf(`
		SELECT id, name, generator, analyzer, frequency_hz,
			   start_dbm, stop_dbm, step_dbm, status, error_info,
			   created_at, started_at, completed_at
		FROM sweep_runs WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, filter.SortBy, strings.ToUpper(filter.SortOrder), argIdx, argIdx+1)
	args = append(args, filter.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		r.logger.Error("Failed to list sweep runs", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.SweepRun
	for rows.Next() {
		run := &model.SweepRun{}
		if err := rows.Scan(
			&run.ID, &run.Name, &run.Generator, &run.Analyzer, &run.FrequencyHz,
			&run.StartDBM, &run.StopDBM, &run.StepDBM, &run.Status, &run.ErrorInfo,
			&run.CreatedAt, &run.StartedAt, &run.CompletedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan sweep run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate sweep runs: %w", err)
	}

	return runs, total, nil
}

// DeleteOldRuns removes completed runs older than the cutoff
func (r *sweepRepository) DeleteOldRuns(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		DELETE FROM sweep_runs
		WHERE completed_at IS NOT NULL AND completed_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sweep runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		r.logger.Info("Old sweep runs deleted", zap.Int64("count", deleted))
	}
	return deleted, nil
}
