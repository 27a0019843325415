package repositories

import (
	"context"

	"github.com/smartdash/energy-backend-go/internal/database/models"
)

// ConfigRepository persists whole configuration documents keyed by name.
type ConfigRepository interface {
	Get(ctx context.Context, key string) (*models.ConfigDocument, error)
	Set(ctx context.Context, doc *models.ConfigDocument) error
}

// EnergyRepository persists per-plug daily energy counters.
type EnergyRepository interface {
	GetReadings(ctx context.Context) ([]*models.EnergyReading, error)
	UpsertReadings(ctx context.Context, readings []*models.EnergyReading) error
	ResetDay(ctx context.Context, resetDate string) error
}
