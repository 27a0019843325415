package database

import (
	"github.com/jmoiron/sqlx"
	"github.com/smartdash/energy-backend-go/internal/database/repositories"
	"github.com/smartdash/energy-backend-go/internal/database/sqlite"
)

// Repositories holds all repository instances
type Repositories struct {
	Config repositories.ConfigRepository
	Energy repositories.EnergyRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Config: sqlite.NewConfigRepository(db),
		Energy: sqlite.NewEnergyRepository(db),
	}
}
