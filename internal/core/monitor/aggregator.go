package monitor

import (
	"time"

	"github.com/smartdash/energy-backend-go/internal/database/models"
)

const dayFormat = "2006-01-02"

// accumulator is one plug's running daily integral.
type accumulator struct {
	dayWh    float64
	lastSeen time.Time
	day      string
}

// Aggregator integrates instantaneous watt samples into per-plug daily
// watt-hours. The integration step is capped at maxStep so gaps (restarts,
// source outages) never integrate phantom energy, and counters roll to zero
// when the local calendar date changes.
type Aggregator struct {
	counters map[string]*accumulator
	maxStep  time.Duration
}

// NewAggregator creates an aggregator capping each integration interval at
// maxStep.
func NewAggregator(maxStep time.Duration) *Aggregator {
	if maxStep <= 0 {
		maxStep = 2 * time.Second
	}
	return &Aggregator{
		counters: make(map[string]*accumulator),
		maxStep:  maxStep,
	}
}

// Restore loads persisted counters. Counters stamped with an older date are
// discarded; the day already rolled while the process was down.
func (a *Aggregator) Restore(readings []*models.EnergyReading, now time.Time) {
	today := now.Format(dayFormat)
	for _, r := range readings {
		if r.ResetDate != today {
			continue
		}
		a.counters[r.EntityID] = &accumulator{
			dayWh:    r.DayWh,
			lastSeen: r.LastSeen,
			day:      r.ResetDate,
		}
	}
}

// Add integrates one sample. Returns the plug's updated day total.
func (a *Aggregator) Add(entityID string, watts float64, now time.Time) float64 {
	today := now.Format(dayFormat)

	acc, ok := a.counters[entityID]
	if !ok {
		acc = &accumulator{day: today}
		a.counters[entityID] = acc
	}

	// A date change zeroes the counter; the step spanning midnight is not
	// integrated.
	if acc.day != today {
		acc.dayWh = 0
		acc.day = today
		acc.lastSeen = now
		return 0
	}

	if !acc.lastSeen.IsZero() {
		dt := now.Sub(acc.lastSeen)
		if dt > a.maxStep {
			dt = a.maxStep
		}
		if dt > 0 {
			acc.dayWh += watts * dt.Seconds() / 3600.0
		}
	}
	acc.lastSeen = now

	return acc.dayWh
}

// DayWh returns the current day total for a plug.
func (a *Aggregator) DayWh(entityID string) float64 {
	if acc, ok := a.counters[entityID]; ok {
		return acc.dayWh
	}
	return 0
}

// ResetAll zeroes every counter for a new day.
func (a *Aggregator) ResetAll(now time.Time) {
	today := now.Format(dayFormat)
	for _, acc := range a.counters {
		acc.dayWh = 0
		acc.day = today
	}
}

// Readings exports every counter for persistence.
func (a *Aggregator) Readings() []*models.EnergyReading {
	readings := make([]*models.EnergyReading, 0, len(a.counters))
	for entityID, acc := range a.counters {
		readings = append(readings, &models.EnergyReading{
			EntityID:  entityID,
			DayWh:     acc.dayWh,
			LastSeen:  acc.lastSeen,
			ResetDate: acc.day,
		})
	}
	return readings
}
