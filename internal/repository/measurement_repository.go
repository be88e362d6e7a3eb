// internal/repository/measurement_repository.go
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"instrument-service/internal/database"
	"instrument-service/internal/model"
)

// measurementRepository implements MeasurementRepository interface
type measurementRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewMeasurementRepository creates a new measurement repository
func NewMeasurementRepository(db *database.DB, logger *zap.Logger) MeasurementRepository {
	return &measurementRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores one measured sweep point
func (r *measurementRepository) Create(ctx context.Context, m *model.Measurement) error {
	query := `
		INSERT INTO measurements (
			id, sweep_id, point_index, level_dbm, evm_percent, power_dbm, measured_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.SweepID, m.PointIndex, m.LevelDBM, m.EVMPercent, m.PowerDBM, m.MeasuredAt,
	)

	if err != nil {
		r.logger.Error("Failed to create measurement",
			zap.Error(err),
			zap.String("sweep_id", m.SweepID.String()),
			zap.Int("point_index", m.PointIndex),
		)
		return fmt.Errorf("failed to create measurement: %w", err)
	}

	return nil
}

// ListBySweep returns all points of a sweep in measurement order
func (r *measurementRepository) ListBySweep(ctx context.Context, sweepID uuid.UUID) ([]*model.Measurement, error) {
	query := `
		SELECT id, sweep_id, point_index, level_dbm, evm_percent, power_dbm, measured_at
		FROM measurements
		WHERE sweep_id = $1
		ORDER BY point_index ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sweepID)
	if err != nil {
		r.logger.Error("Failed to list measurements", zap.Error(err), zap.String("sweep_id", sweepID.String()))
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}
	defer rows.Close()

	var points []*model.Measurement
	for rows.Next() {
		m := &model.Measurement{}
		if err := rows.Scan(
			&m.ID, &m.SweepID, &m.PointIndex, &m.LevelDBM, &m.EVMPercent, &m.PowerDBM, &m.MeasuredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		points = append(points, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate measurements: %w", err)
	}

	return points, nil
}

// CountBySweep returns the number of stored points for a sweep
func (r *measurementRepository) CountBySweep(ctx context.Context, sweepID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM measurements WHERE sweep_id = $1", sweepID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count measurements: %w", err)
	}
	return count, nil
}
