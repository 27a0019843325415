package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smartdash/energy-backend-go/internal/database/models"
)

func TestAggregatorIntegratesWattSeconds(t *testing.T) {
	agg := NewAggregator(2 * time.Second)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// first sample only establishes the baseline
	assert.Equal(t, 0.0, agg.Add("sensor.p1", 3600, now))

	// 3600 W for one second is exactly 1 Wh
	total := agg.Add("sensor.p1", 3600, now.Add(time.Second))
	assert.InDelta(t, 1.0, total, 0.0001)

	total = agg.Add("sensor.p1", 3600, now.Add(2*time.Second))
	assert.InDelta(t, 2.0, total, 0.0001)
}

func TestAggregatorCapsGaps(t *testing.T) {
	agg := NewAggregator(2 * time.Second)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	agg.Add("sensor.p1", 3600, now)

	// an hour-long gap integrates at most the capped step
	total := agg.Add("sensor.p1", 3600, now.Add(time.Hour))
	assert.InDelta(t, 2.0, total, 0.0001)
}

func TestAggregatorRollsAtMidnight(t *testing.T) {
	agg := NewAggregator(2 * time.Second)
	night := time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)

	agg.Add("sensor.p1", 3600, night.Add(-time.Second))
	total := agg.Add("sensor.p1", 3600, night)
	assert.Greater(t, total, 0.0)

	// first sample on the new date starts from zero
	total = agg.Add("sensor.p1", 3600, night.Add(time.Second))
	assert.Equal(t, 0.0, total)
}

func TestAggregatorRestoreSkipsStaleDates(t *testing.T) {
	agg := NewAggregator(2 * time.Second)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	agg.Restore([]*models.EnergyReading{
		{EntityID: "sensor.fresh", DayWh: 120, LastSeen: now.Add(-time.Minute), ResetDate: "2026-03-10"},
		{EntityID: "sensor.stale", DayWh: 500, LastSeen: now.Add(-26 * time.Hour), ResetDate: "2026-03-09"},
	}, now)

	assert.InDelta(t, 120.0, agg.DayWh("sensor.fresh"), 0.0001)
	assert.Equal(t, 0.0, agg.DayWh("sensor.stale"))
}

func TestAggregatorReadingsRoundTrip(t *testing.T) {
	agg := NewAggregator(2 * time.Second)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	agg.Add("sensor.p1", 1800, now)
	agg.Add("sensor.p1", 1800, now.Add(time.Second))

	readings := agg.Readings()
	require.Len(t, readings, 1)
	assert.Equal(t, "sensor.p1", readings[0].EntityID)
	assert.Equal(t, "2026-03-10", readings[0].ResetDate)

	restored := NewAggregator(2 * time.Second)
	restored.Restore(readings, now.Add(2*time.Second))
	assert.InDelta(t, agg.DayWh("sensor.p1"), restored.DayWh("sensor.p1"), 0.0001)
}

func TestAggregatorResetAll(t *testing.T) {
	agg := NewAggregator(2 * time.Second)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	agg.Add("sensor.p1", 3600, now)
	agg.Add("sensor.p1", 3600, now.Add(time.Second))
	require.Greater(t, agg.DayWh("sensor.p1"), 0.0)

	agg.ResetAll(now.Add(2 * time.Second))
	assert.Equal(t, 0.0, agg.DayWh("sensor.p1"))
}
