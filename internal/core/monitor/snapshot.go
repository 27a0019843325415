package monitor

import (
	"time"

	"github.com/smartdash/energy-backend-go/internal/core/energy"
)

// PlugReading is one plug's live values within a snapshot.
type PlugReading struct {
	Watts    float64 `json:"watts"`
	DayWh    float64 `json:"day_wh"`
	IsActive bool    `json:"is_active"`
}

// DeviceSnapshot is one device's aggregated view.
type DeviceSnapshot struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       energy.DeviceType `json:"type"`
	Plug1      PlugReading       `json:"plug1"`
	Plug2      PlugReading       `json:"plug2"`
	TotalWatts float64           `json:"total_watts"`
	Warnings   int               `json:"warnings"`
	Shutoffs   int               `json:"shutoffs"`
}

// RoomSnapshot aggregates a room's devices.
type RoomSnapshot struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	TotalWatts float64          `json:"total_watts"`
	TotalDayWh float64          `json:"total_day_wh"`
	Warnings   int              `json:"warnings"`
	Shutoffs   int              `json:"shutoffs"`
	Outlets    []DeviceSnapshot `json:"outlets"`
}

// BreakerOutletSnapshot is one assigned outlet's share of a breaker load.
type BreakerOutletSnapshot struct {
	OutletID   string  `json:"outlet_id"`
	Name       string  `json:"name"`
	TotalWatts float64 `json:"total_watts"`
	Percentage float64 `json:"percentage"`
}

// BreakerSnapshot is one breaker line's computed load.
type BreakerSnapshot struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	Color      string                  `json:"color"`
	MaxLoad    float64                 `json:"max_load"`
	Threshold  float64                 `json:"threshold"`
	TotalWatts float64                 `json:"total_watts"`
	TotalDayWh float64                 `json:"total_day_wh"`
	Percentage float64                 `json:"percentage"`
	AtMax      bool                    `json:"at_max"`
	Outlets    []BreakerOutletSnapshot `json:"outlets"`
}

// Stove timer phases reported to renderers.
const (
	TimerPhaseNone  = "none"
	TimerPhase15Min = "15min"
	TimerPhaseFinal = "final"
)

// StoveSnapshot is the watchdog's externally visible state.
type StoveSnapshot struct {
	Enabled              bool    `json:"enabled"`
	StoveState           string  `json:"stove_state"`
	CurrentPower         float64 `json:"current_power"`
	PresenceDetected     bool    `json:"presence_detected"`
	TimerPhase           string  `json:"timer_phase"`
	TimeRemaining        float64 `json:"time_remaining"`
	PowerCutForMicrowave bool    `json:"power_cut_for_microwave"`
}

// Snapshot is the full view published atomically at the end of each tick.
// Readers never observe a partially updated tick.
type Snapshot struct {
	TakenAt       time.Time         `json:"taken_at"`
	Rooms         []RoomSnapshot    `json:"rooms"`
	Breakers      []BreakerSnapshot `json:"breaker_lines"`
	Stove         StoveSnapshot     `json:"stove"`
	TotalWatts    float64           `json:"total_watts"`
	TotalDayWh    float64           `json:"total_day_wh"`
	TotalWarnings int               `json:"total_warnings"`
	TotalShutoffs int               `json:"total_shutoffs"`
}
