package monitor

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smartdash/energy-backend-go/internal/adapters/homeassistant"
	"github.com/smartdash/energy-backend-go/internal/core/energy"
	"github.com/smartdash/energy-backend-go/internal/core/tts"
)

type fakeSource struct {
	states   homeassistant.StateMap
	offCalls [][]string
	onCalls  [][]string
	offErr   error
	onErr    error
}

func (f *fakeSource) States(context.Context) (homeassistant.StateMap, error) {
	return f.states, nil
}

func (f *fakeSource) TurnOffSwitches(_ context.Context, entityIDs []string) error {
	if f.offErr != nil {
		return f.offErr
	}
	f.offCalls = append(f.offCalls, entityIDs)
	return nil
}

func (f *fakeSource) TurnOnSwitches(_ context.Context, entityIDs []string) error {
	if f.onErr != nil {
		return f.onErr
	}
	f.onCalls = append(f.onCalls, entityIDs)
	return nil
}

type fakeSpeaker struct {
	sent []string
}

func (f *fakeSpeaker) SendTTS(_ context.Context, _, message, _ string, _ float64) error {
	f.sent = append(f.sent, message)
	return nil
}

func (f *fakeSpeaker) SetVolume(context.Context, string, float64) error { return nil }

type harness struct {
	engine *Engine
	source *fakeSource
	alerts []tts.Alert
	clock  time.Time
}

func newHarness(t *testing.T, doc *energy.Document) *harness {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	source := &fakeSource{}
	dispatcher := tts.NewDispatcher(&fakeSpeaker{}, time.Minute, log)
	engine := NewEngine(source, dispatcher, NewAggregator(2*time.Second), 3, log)
	engine.ApplyConfig(doc)

	h := &harness{engine: engine, source: source, clock: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	dispatcher.OnAlert(func(a tts.Alert) { h.alerts = append(h.alerts, a) })
	return h
}

func (h *harness) tick(states homeassistant.StateMap) *Snapshot {
	h.clock = h.clock.Add(time.Second)
	return h.engine.Tick(context.Background(), h.clock, states)
}

func (h *harness) tickAt(at time.Time, states homeassistant.StateMap) *Snapshot {
	h.clock = at
	return h.engine.Tick(context.Background(), h.clock, states)
}

func (h *harness) alertKinds() []tts.Kind {
	kinds := make([]tts.Kind, 0, len(h.alerts))
	for _, a := range h.alerts {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

func sensor(id string, watts float64) homeassistant.EntityState {
	return homeassistant.EntityState{
		EntityID: id,
		State:    strconv.FormatFloat(watts, 'f', -1, 64),
	}
}

func relay(id, state string) homeassistant.EntityState {
	return homeassistant.EntityState{EntityID: id, State: state}
}

func states(entities ...homeassistant.EntityState) homeassistant.StateMap {
	m := make(homeassistant.StateMap, len(entities))
	for _, e := range entities {
		m[e.EntityID] = e
	}
	return m
}

func kitchenDoc() *energy.Document {
	doc := energy.DefaultDocument()
	doc.Rooms = []energy.Room{{
		ID:             "kitchen",
		Name:           "Kitchen",
		MediaPlayer:    "media_player.kitchen",
		ThresholdWatts: 2000,
		Outlets: []energy.Device{{
			ID:             "counter",
			Name:           "Counter",
			Type:           energy.DeviceOutlet,
			Plug1Entity:    "sensor.counter_p1_power",
			Plug1Switch:    "switch.counter_p1",
			Plug1Shutoff:   1500,
			Plug2Entity:    "sensor.counter_p2_power",
			Plug2Switch:    "switch.counter_p2",
			ThresholdWatts: 1000,
		}},
	}}
	return doc
}

func TestWarningCountsOncePerCrossing(t *testing.T) {
	h := newHarness(t, kitchenDoc())

	snap := h.tick(states(sensor("sensor.counter_p1_power", 500)))
	assert.Equal(t, 0, snap.Rooms[0].Outlets[0].Warnings)

	// crossing increments once
	snap = h.tick(states(sensor("sensor.counter_p1_power", 1100)))
	assert.Equal(t, 1, snap.Rooms[0].Outlets[0].Warnings)
	assert.Equal(t, 1, snap.Rooms[0].Warnings, "device warning counts against its room")

	// still over, no further increment
	snap = h.tick(states(sensor("sensor.counter_p1_power", 1200)))
	assert.Equal(t, 1, snap.Rooms[0].Outlets[0].Warnings)

	// back under, then over again
	h.tick(states(sensor("sensor.counter_p1_power", 400)))
	snap = h.tick(states(sensor("sensor.counter_p1_power", 1100)))
	assert.Equal(t, 2, snap.Rooms[0].Outlets[0].Warnings)
	assert.Equal(t, 2, snap.Rooms[0].Warnings)
}

func TestRoomWarningOnAggregateLoad(t *testing.T) {
	h := newHarness(t, kitchenDoc())

	// each plug under its device threshold, sum over the room threshold
	snap := h.tick(states(
		sensor("sensor.counter_p1_power", 1050),
		sensor("sensor.counter_p2_power", 1050),
	))
	require.Equal(t, 2100.0, snap.Rooms[0].TotalWatts)
	assert.Contains(t, h.alertKinds(), tts.KindRoomWarning)
}

func TestShutoffLatchesAndResets(t *testing.T) {
	h := newHarness(t, kitchenDoc())

	snap := h.tick(states(
		sensor("sensor.counter_p1_power", 1800),
		relay("switch.counter_p1", "on"),
	))
	require.Equal(t, [][]string{{"switch.counter_p1"}}, h.source.offCalls)
	assert.Equal(t, 1, snap.Rooms[0].Outlets[0].Shutoffs)
	assert.Equal(t, 1, snap.Rooms[0].Shutoffs)
	assert.Contains(t, h.alertKinds(), tts.KindShutoff)

	// latched: stale high reading does not fire a second command
	snap = h.tick(states(
		sensor("sensor.counter_p1_power", 1800),
		relay("switch.counter_p1", "on"),
	))
	assert.Len(t, h.source.offCalls, 1)
	assert.Equal(t, 1, snap.Rooms[0].Outlets[0].Shutoffs)

	// load gone but relay still off: latch holds
	h.tick(states(
		sensor("sensor.counter_p1_power", 0),
		relay("switch.counter_p1", "off"),
	))
	assert.NotContains(t, h.alertKinds(), tts.KindReset)

	// relay observed back on after idle: re-armed with a reset alert
	h.tick(states(
		sensor("sensor.counter_p1_power", 0),
		relay("switch.counter_p1", "on"),
	))
	assert.Contains(t, h.alertKinds(), tts.KindReset)

	// armed again: next overload fires again
	snap = h.tick(states(
		sensor("sensor.counter_p1_power", 1900),
		relay("switch.counter_p1", "on"),
	))
	assert.Len(t, h.source.offCalls, 2)
	assert.Equal(t, 2, snap.Rooms[0].Outlets[0].Shutoffs)
}

func TestShutoffRelayFailureRetriesThenAlerts(t *testing.T) {
	h := newHarness(t, kitchenDoc())
	h.source.offErr = assert.AnError

	overload := states(sensor("sensor.counter_p1_power", 1800), relay("switch.counter_p1", "on"))

	snap := h.tick(overload)
	assert.Equal(t, 0, snap.Rooms[0].Outlets[0].Shutoffs)
	assert.NotContains(t, h.alertKinds(), tts.KindRelayFailure)

	h.tick(overload)
	assert.NotContains(t, h.alertKinds(), tts.KindRelayFailure)

	// third consecutive failure raises the alert
	h.tick(overload)
	assert.Contains(t, h.alertKinds(), tts.KindRelayFailure)

	// relay recovers: command succeeds and the latch engages
	h.source.offErr = nil
	snap = h.tick(overload)
	require.Len(t, h.source.offCalls, 1)
	assert.Equal(t, 1, snap.Rooms[0].Outlets[0].Shutoffs)
}

func breakerDoc() *energy.Document {
	doc := energy.DefaultDocument()
	doc.Rooms = []energy.Room{{
		ID:          "garage",
		Name:        "Garage",
		MediaPlayer: "media_player.garage",
		Outlets: []energy.Device{
			{
				ID:          "bench",
				Name:        "Bench",
				Type:        energy.DeviceSingleOutlet,
				Plug1Entity: "sensor.bench_power",
				Plug1Switch: "switch.bench",
			},
			{
				ID:          "compressor",
				Name:        "Compressor",
				Type:        energy.DeviceSingleOutlet,
				Plug1Entity: "sensor.compressor_power",
				Plug1Switch: "switch.compressor",
			},
		},
	}}
	doc.BreakerLines = []energy.BreakerLine{{
		ID:             "line1",
		Name:           "Garage line",
		MaxLoadWatts:   1000,
		ThresholdWatts: 800,
		OutletIDs:      []string{"bench", "compressor"},
	}}
	return doc
}

func TestBreakerLoadAndPercentages(t *testing.T) {
	h := newHarness(t, breakerDoc())

	snap := h.tick(states(
		sensor("sensor.bench_power", 300),
		sensor("sensor.compressor_power", 200),
	))

	require.Len(t, snap.Breakers, 1)
	b := snap.Breakers[0]
	assert.Equal(t, 500.0, b.TotalWatts)
	assert.InDelta(t, 50.0, b.Percentage, 0.001)
	assert.False(t, b.AtMax)

	// outlet percentages are shares of the line's current draw
	require.Len(t, b.Outlets, 2)
	assert.InDelta(t, 60.0, b.Outlets[0].Percentage, 0.001)
	assert.InDelta(t, 40.0, b.Outlets[1].Percentage, 0.001)

	// idle line: no division by zero, everything reads 0%
	snap = h.tick(states(
		sensor("sensor.bench_power", 0),
		sensor("sensor.compressor_power", 0),
	))
	b = snap.Breakers[0]
	assert.Zero(t, b.Percentage)
	assert.Zero(t, b.Outlets[0].Percentage)
	assert.Zero(t, b.Outlets[1].Percentage)
}

func TestBreakerPercentageClampedAtMax(t *testing.T) {
	h := newHarness(t, breakerDoc())

	snap := h.tick(states(
		sensor("sensor.bench_power", 900),
		sensor("sensor.compressor_power", 600),
	))
	assert.InDelta(t, 100.0, snap.Breakers[0].Percentage, 0.001)
	assert.True(t, snap.Breakers[0].AtMax)
}

func TestBreakerSoftThresholdWarnsWithoutMaxLoad(t *testing.T) {
	doc := breakerDoc()
	doc.BreakerLines[0].MaxLoadWatts = 0
	doc.BreakerLines[0].ThresholdWatts = 400
	h := newHarness(t, doc)

	snap := h.tick(states(
		sensor("sensor.bench_power", 500),
		sensor("sensor.compressor_power", 200),
	))
	assert.Contains(t, h.alertKinds(), tts.KindBreakerWarning)
	assert.Empty(t, h.source.offCalls, "no hard limit to enforce")
	assert.False(t, snap.Breakers[0].AtMax)
}

func TestBreakerOutletClaimedByOneLine(t *testing.T) {
	doc := breakerDoc()
	doc.BreakerLines = append(doc.BreakerLines, energy.BreakerLine{
		ID:           "line2",
		Name:         "Shop line",
		MaxLoadWatts: 1000,
		OutletIDs:    []string{"bench"},
	})
	h := newHarness(t, doc)

	snap := h.tick(states(
		sensor("sensor.bench_power", 300),
		sensor("sensor.compressor_power", 200),
	))

	// the later line owns the contested outlet, the earlier one loses it
	require.Len(t, snap.Breakers, 2)
	assert.Equal(t, 200.0, snap.Breakers[0].TotalWatts)
	require.Len(t, snap.Breakers[0].Outlets, 1)
	assert.Equal(t, "compressor", snap.Breakers[0].Outlets[0].OutletID)
	assert.Equal(t, 300.0, snap.Breakers[1].TotalWatts)
}

func TestBreakerSoftThresholdWarns(t *testing.T) {
	h := newHarness(t, breakerDoc())

	h.tick(states(
		sensor("sensor.bench_power", 500),
		sensor("sensor.compressor_power", 400),
	))
	assert.Contains(t, h.alertKinds(), tts.KindBreakerWarning)
	assert.Empty(t, h.source.offCalls)
}

func TestBreakerMaxLoadOpensAllRelaysOnce(t *testing.T) {
	h := newHarness(t, breakerDoc())

	over := states(
		sensor("sensor.bench_power", 700),
		sensor("sensor.compressor_power", 500),
	)

	snap := h.tick(over)
	require.Len(t, h.source.offCalls, 1, "one grouped relay command")
	assert.ElementsMatch(t, []string{"switch.bench", "switch.compressor"}, h.source.offCalls[0])
	assert.True(t, snap.Breakers[0].AtMax)
	assert.Contains(t, h.alertKinds(), tts.KindBreakerShutoff)
	assert.Equal(t, 2, snap.TotalShutoffs, "both assigned outlets count a shutoff")

	// latched while still at max
	snap = h.tick(over)
	assert.Len(t, h.source.offCalls, 1)
	assert.True(t, snap.Breakers[0].AtMax)
	assert.Equal(t, 2, snap.Rooms[0].Shutoffs)

	// back below max clears the latch
	snap = h.tick(states(
		sensor("sensor.bench_power", 100),
		sensor("sensor.compressor_power", 100),
	))
	assert.False(t, snap.Breakers[0].AtMax)

	// and the next overload trips again
	h.tick(over)
	assert.Len(t, h.source.offCalls, 2)
}

func TestSnapshotTotals(t *testing.T) {
	h := newHarness(t, kitchenDoc())

	snap := h.tick(states(
		sensor("sensor.counter_p1_power", 600),
		sensor("sensor.counter_p2_power", 400),
	))

	assert.Equal(t, 1000.0, snap.TotalWatts)
	assert.Equal(t, 1000.0, snap.Rooms[0].Outlets[0].TotalWatts)
	assert.True(t, snap.Rooms[0].Outlets[0].Plug1.IsActive)
	assert.True(t, snap.Rooms[0].Outlets[0].Plug2.IsActive)
}

func TestApplyConfigDropsStateForRemovedDevices(t *testing.T) {
	h := newHarness(t, kitchenDoc())

	// latch the plug
	h.tick(states(sensor("sensor.counter_p1_power", 1800), relay("switch.counter_p1", "on")))
	require.Len(t, h.engine.plugs, 1)

	h.engine.ApplyConfig(energy.DefaultDocument())
	assert.Empty(t, h.engine.plugs)
}

func TestApplyConfigDropsCountersForRemovedRooms(t *testing.T) {
	h := newHarness(t, kitchenDoc())

	// accrue a warning and a shutoff in the kitchen
	snap := h.tick(states(
		sensor("sensor.counter_p1_power", 1800),
		relay("switch.counter_p1", "on"),
	))
	require.Equal(t, 1, snap.TotalWarnings)
	require.Equal(t, 1, snap.TotalShutoffs)

	// kitchen removed: its history stops counting against the totals
	h.engine.ApplyConfig(energy.DefaultDocument())
	snap = h.tick(states())
	assert.Zero(t, snap.TotalWarnings)
	assert.Zero(t, snap.TotalShutoffs)
	assert.Empty(t, h.engine.roomWarnings)
	assert.Empty(t, h.engine.warnOver)
}
