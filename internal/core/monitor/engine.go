package monitor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdash/energy-backend-go/internal/adapters/homeassistant"
	"github.com/smartdash/energy-backend-go/internal/core/energy"
	"github.com/smartdash/energy-backend-go/internal/core/tts"
)

// Engine evaluates one telemetry snapshot per tick: aggregation, thresholds,
// breaker capacity and the stove watchdog. All engine state is owned by the
// tick loop; the Service serializes ticks with configuration swaps.
type Engine struct {
	logger     *logrus.Logger
	source     Source
	dispatcher *tts.Dispatcher
	agg        *Aggregator

	doc   *energy.Document
	index *energy.BreakerIndex

	relayRetryLimit int

	plugs           map[string]*plugState
	warnOver        map[string]bool
	deviceWarnings  map[string]int
	deviceShutoffs  map[string]int
	roomWarnings    map[string]int
	roomShutoffs    map[string]int
	breakerLatched  map[string]bool
	breakerFailures map[string]int
	stove           stoveState
}

// NewEngine creates the evaluation engine.
func NewEngine(source Source, dispatcher *tts.Dispatcher, agg *Aggregator, relayRetryLimit int, logger *logrus.Logger) *Engine {
	if relayRetryLimit <= 0 {
		relayRetryLimit = 3
	}
	return &Engine{
		logger:          logger,
		source:          source,
		dispatcher:      dispatcher,
		agg:             agg,
		doc:             energy.DefaultDocument(),
		index:           energy.NewBreakerIndex(),
		relayRetryLimit: relayRetryLimit,
		plugs:           make(map[string]*plugState),
		warnOver:        make(map[string]bool),
		deviceWarnings:  make(map[string]int),
		deviceShutoffs:  make(map[string]int),
		roomWarnings:    make(map[string]int),
		roomShutoffs:    make(map[string]int),
		breakerLatched:  make(map[string]bool),
		breakerFailures: make(map[string]int),
	}
}

// ApplyConfig swaps the active configuration. Latches and counters survive
// for entities that still exist so a config edit cannot re-fire a shutoff;
// everything keyed to a removed room, device, plug or breaker is dropped so
// the published totals stop counting it.
func (e *Engine) ApplyConfig(doc *energy.Document) {
	e.doc = doc
	e.index = energy.BuildBreakerIndex(doc.BreakerLines)

	livePlugs := make(map[string]bool)
	liveDevices := make(map[string]bool)
	liveRooms := make(map[string]bool)
	liveBreakers := make(map[string]bool)
	for _, room := range doc.Rooms {
		liveRooms[room.ID] = true
		for _, dev := range room.Outlets {
			liveDevices[dev.ID] = true
			for _, plug := range dev.Plugs() {
				livePlugs[plugKey(dev.ID, plug.Slot)] = true
			}
		}
	}
	for _, line := range doc.BreakerLines {
		liveBreakers[line.ID] = true
	}

	for key := range e.plugs {
		if !livePlugs[key] {
			delete(e.plugs, key)
		}
	}
	pruneCounters(e.deviceWarnings, liveDevices)
	pruneCounters(e.deviceShutoffs, liveDevices)
	pruneCounters(e.roomWarnings, liveRooms)
	pruneCounters(e.roomShutoffs, liveRooms)
	for key := range e.warnOver {
		if !warnKeyLive(key, liveDevices, liveRooms, liveBreakers) {
			delete(e.warnOver, key)
		}
	}
	for id := range e.breakerLatched {
		if !liveBreakers[id] {
			delete(e.breakerLatched, id)
		}
	}
	for id := range e.breakerFailures {
		if !liveBreakers[id] {
			delete(e.breakerFailures, id)
		}
	}
}

func pruneCounters(counts map[string]int, live map[string]bool) {
	for id := range counts {
		if !live[id] {
			delete(counts, id)
		}
	}
}

// warnKeyLive resolves a crossing-tracker key ("device:x", "room:x",
// "breaker:x") against the new document.
func warnKeyLive(key string, devices, rooms, breakers map[string]bool) bool {
	switch {
	case strings.HasPrefix(key, "device:"):
		return devices[strings.TrimPrefix(key, "device:")]
	case strings.HasPrefix(key, "room:"):
		return rooms[strings.TrimPrefix(key, "room:")]
	case strings.HasPrefix(key, "breaker:"):
		return breakers[strings.TrimPrefix(key, "breaker:")]
	}
	return false
}

// Config returns the active configuration document.
func (e *Engine) Config() *energy.Document {
	return e.doc
}

// Tick runs one full evaluation pass against a state snapshot and returns
// the published view.
func (e *Engine) Tick(ctx context.Context, now time.Time, states homeassistant.StateMap) *Snapshot {
	snap := &Snapshot{TakenAt: now}

	deviceWatts := make(map[string]float64)
	deviceDayWh := make(map[string]float64)

	for ri := range e.doc.Rooms {
		room := &e.doc.Rooms[ri]
		roomSnap := RoomSnapshot{ID: room.ID, Name: room.Name}

		for di := range room.Outlets {
			dev := &room.Outlets[di]
			devSnap := e.sampleDevice(ctx, now, states, room, dev)

			deviceWatts[dev.ID] = devSnap.TotalWatts
			deviceDayWh[dev.ID] = devSnap.Plug1.DayWh + devSnap.Plug2.DayWh

			// Device warning threshold on the plug sum.
			if e.crossedWarning("device:"+dev.ID, dev.ThresholdWatts, devSnap.TotalWatts) {
				e.deviceWarnings[dev.ID]++
				e.roomWarnings[room.ID]++
			}
			if dev.ThresholdWatts > 0 && devSnap.TotalWatts > dev.ThresholdWatts {
				e.dispatcher.Emit(ctx, now, e.doc.TTSSettings, tts.Request{
					Kind:        tts.KindOutletWarning,
					Target:      room.ID + "/" + dev.ID,
					MediaPlayer: room.MediaPlayer,
					Volume:      roomVolume(room, e.doc.TTSSettings),
					Vars: map[string]string{
						"room_name":   room.Name,
						"outlet_name": dev.Name,
						"watts":       formatWatts(devSnap.TotalWatts),
					},
				})
			}

			devSnap.Warnings = e.deviceWarnings[dev.ID]
			devSnap.Shutoffs = e.deviceShutoffs[dev.ID]
			roomSnap.TotalWatts += devSnap.TotalWatts
			roomSnap.TotalDayWh += deviceDayWh[dev.ID]
			roomSnap.Outlets = append(roomSnap.Outlets, devSnap)
		}

		if e.crossedWarning("room:"+room.ID, room.ThresholdWatts, roomSnap.TotalWatts) {
			e.roomWarnings[room.ID]++
		}
		if room.ThresholdWatts > 0 && roomSnap.TotalWatts > room.ThresholdWatts {
			e.dispatcher.Emit(ctx, now, e.doc.TTSSettings, tts.Request{
				Kind:        tts.KindRoomWarning,
				Target:      room.ID,
				MediaPlayer: room.MediaPlayer,
				Volume:      roomVolume(room, e.doc.TTSSettings),
				Vars: map[string]string{
					"room_name": room.Name,
					"watts":     formatWatts(roomSnap.TotalWatts),
				},
			})
		}

		roomSnap.Warnings = e.roomWarnings[room.ID]
		roomSnap.Shutoffs = e.roomShutoffs[room.ID]
		snap.TotalWatts += roomSnap.TotalWatts
		snap.TotalDayWh += roomSnap.TotalDayWh
		snap.Rooms = append(snap.Rooms, roomSnap)
	}

	snap.Breakers = e.checkBreakers(ctx, now, deviceWatts, deviceDayWh)
	snap.Stove = e.checkStove(ctx, now, states)

	for _, n := range e.roomWarnings {
		snap.TotalWarnings += n
	}
	for _, n := range e.roomShutoffs {
		snap.TotalShutoffs += n
	}

	return snap
}

// sampleDevice reads both plugs, integrates day energy and runs the per-plug
// shutoff engine.
func (e *Engine) sampleDevice(ctx context.Context, now time.Time, states homeassistant.StateMap, room *energy.Room, dev *energy.Device) DeviceSnapshot {
	devSnap := DeviceSnapshot{ID: dev.ID, Name: dev.Name, Type: dev.Type}

	for _, plug := range dev.Plugs() {
		watts := states.PowerValue(plug.Entity)
		dayWh := e.agg.Add(plug.Entity, watts, now)

		reading := PlugReading{
			Watts:    watts,
			DayWh:    dayWh,
			IsActive: watts > energy.ActiveWatts,
		}
		if plug.Slot == 1 {
			devSnap.Plug1 = reading
		} else {
			devSnap.Plug2 = reading
		}
		devSnap.TotalWatts += watts

		e.checkPlugShutoff(ctx, now, states, room, dev, plug, watts)
	}

	return devSnap
}

// crossedWarning tracks the under-to-over transition for a warning
// threshold. Counters increment once per crossing, not once per tick.
func (e *Engine) crossedWarning(key string, threshold, value float64) bool {
	if threshold <= 0 {
		delete(e.warnOver, key)
		return false
	}
	over := value > threshold
	was := e.warnOver[key]
	e.warnOver[key] = over
	return over && !was
}

func roomVolume(room *energy.Room, settings energy.TTSSettings) float64 {
	if room.Volume > 0 {
		return room.Volume
	}
	return settings.Volume
}

func formatWatts(watts float64) string {
	return fmt.Sprintf("%d", int(math.Round(watts)))
}

func plugKey(deviceID string, slot int) string {
	return fmt.Sprintf("%s/%d", deviceID, slot)
}
