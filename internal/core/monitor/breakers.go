package monitor

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdash/energy-backend-go/internal/core/energy"
	"github.com/smartdash/energy-backend-go/internal/core/tts"
)

// checkBreakers computes each breaker line's load from the device samples
// collected this tick and enforces the soft and hard limits. The hard limit
// opens every relay on the line in one grouped command and latches until the
// line falls back below max load.
func (e *Engine) checkBreakers(ctx context.Context, now time.Time, deviceWatts, deviceDayWh map[string]float64) []BreakerSnapshot {
	snaps := make([]BreakerSnapshot, 0, len(e.doc.BreakerLines))

	for bi := range e.doc.BreakerLines {
		line := &e.doc.BreakerLines[bi]
		snap := BreakerSnapshot{
			ID:        line.ID,
			Name:      line.Name,
			Color:     line.Color,
			MaxLoad:   line.MaxLoadWatts,
			Threshold: line.ThresholdWatts,
		}

		for _, outletID := range e.index.Outlets(line.ID) {
			dev, _ := e.doc.DeviceByID(outletID)
			if dev == nil {
				continue
			}
			watts := deviceWatts[outletID]
			snap.TotalWatts += watts
			snap.TotalDayWh += deviceDayWh[outletID]
			snap.Outlets = append(snap.Outlets, BreakerOutletSnapshot{
				OutletID:   outletID,
				Name:       dev.Name,
				TotalWatts: watts,
			})
		}

		if line.MaxLoadWatts > 0 {
			snap.Percentage = math.Min(snap.TotalWatts/line.MaxLoadWatts*100, 100)
		}
		// Outlet percentages are each outlet's share of the line's current
		// draw, not of the max load.
		if snap.TotalWatts > 0 {
			for i := range snap.Outlets {
				snap.Outlets[i].Percentage = snap.Outlets[i].TotalWatts / snap.TotalWatts * 100
			}
		}

		// max_load == 0 means the line's capacity is unknown; the soft
		// threshold still warns on its own.
		e.crossedWarning("breaker:"+line.ID, line.ThresholdWatts, snap.TotalWatts)
		if line.ThresholdWatts > 0 && snap.TotalWatts > line.ThresholdWatts &&
			(line.MaxLoadWatts <= 0 || snap.TotalWatts < line.MaxLoadWatts) {
			mediaPlayer, volume := e.alertPlayer()
			e.dispatcher.Emit(ctx, now, e.doc.TTSSettings, tts.Request{
				Kind:        tts.KindBreakerWarning,
				Target:      line.ID,
				MediaPlayer: mediaPlayer,
				Volume:      volume,
				Vars: map[string]string{
					"breaker_name": line.Name,
					"watts":        formatWatts(snap.TotalWatts),
				},
			})
		}

		e.checkBreakerMaxLoad(ctx, now, line, &snap)
		snap.AtMax = e.breakerLatched[line.ID]
		snaps = append(snaps, snap)
	}

	return snaps
}

// checkBreakerMaxLoad enforces the hard limit for one line.
func (e *Engine) checkBreakerMaxLoad(ctx context.Context, now time.Time, line *energy.BreakerLine, snap *BreakerSnapshot) {
	if line.MaxLoadWatts <= 0 {
		delete(e.breakerLatched, line.ID)
		delete(e.breakerFailures, line.ID)
		return
	}

	if snap.TotalWatts < line.MaxLoadWatts {
		if e.breakerLatched[line.ID] {
			delete(e.breakerLatched, line.ID)
			e.logger.WithField("breaker", line.ID).Info("Breaker load back below max, latch cleared")
		}
		delete(e.breakerFailures, line.ID)
		return
	}

	if e.breakerLatched[line.ID] {
		return
	}

	switches := e.breakerSwitches(line)
	if len(switches) == 0 {
		return
	}

	if err := e.source.TurnOffSwitches(ctx, switches); err != nil {
		e.breakerFailures[line.ID]++
		relayFailures.Inc()
		e.logger.WithError(err).WithFields(logrus.Fields{
			"breaker":  line.ID,
			"switches": len(switches),
			"failures": e.breakerFailures[line.ID],
		}).Error("Breaker shutoff command failed")
		if e.breakerFailures[line.ID] >= e.relayRetryLimit {
			mediaPlayer, volume := e.alertPlayer()
			e.dispatcher.Emit(ctx, now, e.doc.TTSSettings, tts.Request{
				Kind:        tts.KindRelayFailure,
				Target:      "breaker:" + line.ID,
				MediaPlayer: mediaPlayer,
				Volume:      volume,
				Vars: map[string]string{
					"outlet_name": line.Name,
					"plug":        "circuit",
				},
			})
		}
		return
	}

	e.breakerLatched[line.ID] = true
	delete(e.breakerFailures, line.ID)
	relayCommands.Inc()

	for _, outletID := range e.index.Outlets(line.ID) {
		if dev, room := e.doc.DeviceByID(outletID); dev != nil {
			e.deviceShutoffs[dev.ID]++
			e.roomShutoffs[room.ID]++
		}
	}

	e.logger.WithFields(logrus.Fields{
		"breaker":  line.ID,
		"watts":    snap.TotalWatts,
		"max_load": line.MaxLoadWatts,
	}).Warn("Breaker at max load, all assigned relays opened")

	mediaPlayer, volume := e.alertPlayer()
	e.dispatcher.Emit(ctx, now, e.doc.TTSSettings, tts.Request{
		Kind:        tts.KindBreakerShutoff,
		Target:      line.ID,
		MediaPlayer: mediaPlayer,
		Volume:      volume,
		NoCooldown:  true,
		Vars: map[string]string{
			"breaker_name": line.Name,
			"watts":        formatWatts(snap.TotalWatts),
		},
	})
}

// breakerSwitches collects every relay entity on a line's assigned outlets.
// Assignment goes through the index so an outlet claimed by two lines is only
// ever acted on by one of them.
func (e *Engine) breakerSwitches(line *energy.BreakerLine) []string {
	var switches []string
	for _, outletID := range e.index.Outlets(line.ID) {
		dev, _ := e.doc.DeviceByID(outletID)
		if dev == nil {
			continue
		}
		for _, plug := range dev.Plugs() {
			if plug.Switch != "" {
				switches = append(switches, plug.Switch)
			}
		}
	}
	return switches
}

// alertPlayer picks the speaker for alerts with no owning room: the first
// room that has a media player configured.
func (e *Engine) alertPlayer() (string, float64) {
	for ri := range e.doc.Rooms {
		room := &e.doc.Rooms[ri]
		if room.MediaPlayer != "" {
			return room.MediaPlayer, roomVolume(room, e.doc.TTSSettings)
		}
	}
	return "", 0
}
