package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/smartdash/energy-backend-go/internal/database/models"
	"github.com/smartdash/energy-backend-go/internal/database/repositories"
)

// EnergyRepository implements repositories.EnergyRepository
type EnergyRepository struct {
	db *sqlx.DB
}

// NewEnergyRepository creates a new EnergyRepository
func NewEnergyRepository(db *sqlx.DB) repositories.EnergyRepository {
	return &EnergyRepository{db: db}
}

// GetReadings returns every persisted daily energy counter.
func (r *EnergyRepository) GetReadings(ctx context.Context) ([]*models.EnergyReading, error) {
	query := `
		SELECT entity_id, day_wh, last_seen, reset_date
		FROM energy_readings
		ORDER BY entity_id
	`

	var readings []*models.EnergyReading
	if err := r.db.SelectContext(ctx, &readings, query); err != nil {
		return nil, fmt.Errorf("failed to query energy readings: %w", err)
	}

	return readings, nil
}

// UpsertReadings writes the given counters in one transaction. Called on the
// periodic flush and on shutdown.
func (r *EnergyRepository) UpsertReadings(ctx context.Context, readings []*models.EnergyReading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO energy_readings (entity_id, day_wh, last_seen, reset_date)
		VALUES (:entity_id, :day_wh, :last_seen, :reset_date)
		ON CONFLICT(entity_id) DO UPDATE SET
			day_wh = excluded.day_wh,
			last_seen = excluded.last_seen,
			reset_date = excluded.reset_date
	`

	for _, reading := range readings {
		if _, err := tx.NamedExecContext(ctx, query, reading); err != nil {
			return fmt.Errorf("failed to upsert reading for %s: %w", reading.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit energy readings: %w", err)
	}

	return nil
}

// ResetDay zeroes every counter and stamps the new day.
func (r *EnergyRepository) ResetDay(ctx context.Context, resetDate string) error {
	query := `UPDATE energy_readings SET day_wh = 0, reset_date = ?`

	if _, err := r.db.ExecContext(ctx, query, resetDate); err != nil {
		return fmt.Errorf("failed to reset energy readings: %w", err)
	}

	return nil
}
