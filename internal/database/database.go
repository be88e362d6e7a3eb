// internal/database/database.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"instrument-service/internal/config"
)

// DB wraps the SQL connection pool for the results store
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// New opens the results database and verifies connectivity
func New(cfg *config.Config, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("dbname", cfg.Database.DBName),
	)

	return &DB{DB: db, logger: logger}, nil
}

// HealthCheck pings the database with a short deadline
func (d *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.PingContext(ctx)
}

// GetStats returns connection pool statistics
func (d *DB) GetStats() sql.DBStats {
	return d.Stats()
}

// Close closes the connection pool
func (d *DB) Close() error {
	d.logger.Info("Closing database connection")
	return d.DB.Close()
}
