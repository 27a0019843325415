package models

import "time"

// ConfigDocument is a persisted JSON configuration document. The energy and
// cameras configurations are stored whole and replaced atomically.
type ConfigDocument struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Document keys.
const (
	DocumentKeyEnergy  = "energy"
	DocumentKeyCameras = "cameras"
)

// EnergyReading is the per-plug daily energy integral. LastSeen bounds the
// integration interval after restarts; ResetDate (local YYYY-MM-DD) marks
// the day the counter belongs to.
type EnergyReading struct {
	EntityID  string    `json:"entity_id" db:"entity_id"`
	DayWh     float64   `json:"day_wh" db:"day_wh"`
	LastSeen  time.Time `json:"last_seen" db:"last_seen"`
	ResetDate string    `json:"reset_date" db:"reset_date"`
}
