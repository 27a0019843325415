package monitor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdash/energy-backend-go/internal/adapters/homeassistant"
	"github.com/smartdash/energy-backend-go/internal/core/energy"
	"github.com/smartdash/energy-backend-go/internal/core/tts"
)

// plugState is the per-plug shutoff latch. A latch is set only after the
// relay-off command succeeds and clears only after the plug has been seen
// idle and its switch back on.
type plugState struct {
	latched  bool
	zeroSeen bool
	failures int
}

// checkPlugShutoff runs the safety shutoff engine for one plug. The shutoff
// fires on the threshold crossing, latches, and re-arms only after the load
// drops to idle and the relay is observed on again.
func (e *Engine) checkPlugShutoff(ctx context.Context, now time.Time, states homeassistant.StateMap, room *energy.Room, dev *energy.Device, plug energy.PlugRef, watts float64) {
	if plug.Shutoff <= 0 || plug.Switch == "" {
		delete(e.plugs, plugKey(dev.ID, plug.Slot))
		return
	}

	key := plugKey(dev.ID, plug.Slot)
	ps, ok := e.plugs[key]
	if !ok {
		ps = &plugState{}
		e.plugs[key] = ps
	}

	if ps.latched {
		if watts <= energy.ActiveWatts {
			ps.zeroSeen = true
		}
		if ps.zeroSeen && states.IsOn(plug.Switch) {
			ps.latched = false
			ps.zeroSeen = false
			e.logger.WithFields(logrus.Fields{
				"device": dev.ID,
				"plug":   plug.Slot,
			}).Info("Shutoff latch cleared, plug re-armed")
			e.dispatcher.Emit(ctx, now, e.doc.TTSSettings, tts.Request{
				Kind:        tts.KindReset,
				Target:      key,
				MediaPlayer: room.MediaPlayer,
				Volume:      roomVolume(room, e.doc.TTSSettings),
				NoCooldown:  true,
				Vars: map[string]string{
					"room_name":   room.Name,
					"outlet_name": dev.Name,
					"plug":        plug.Name,
				},
			})
		}
		return
	}

	if watts <= plug.Shutoff {
		ps.failures = 0
		return
	}

	if err := e.source.TurnOffSwitches(ctx, []string{plug.Switch}); err != nil {
		ps.failures++
		relayFailures.Inc()
		e.logger.WithError(err).WithFields(logrus.Fields{
			"device":   dev.ID,
			"plug":     plug.Slot,
			"switch":   plug.Switch,
			"failures": ps.failures,
		}).Error("Shutoff relay command failed")
		if ps.failures >= e.relayRetryLimit {
			e.dispatcher.Emit(ctx, now, e.doc.TTSSettings, tts.Request{
				Kind:        tts.KindRelayFailure,
				Target:      key,
				MediaPlayer: room.MediaPlayer,
				Volume:      roomVolume(room, e.doc.TTSSettings),
				Vars: map[string]string{
					"outlet_name": dev.Name,
					"plug":        plug.Name,
				},
			})
		}
		return
	}

	ps.latched = true
	ps.zeroSeen = false
	ps.failures = 0
	e.deviceShutoffs[dev.ID]++
	e.roomShutoffs[room.ID]++
	relayCommands.Inc()

	e.logger.WithFields(logrus.Fields{
		"device": dev.ID,
		"plug":   plug.Slot,
		"watts":  watts,
		"limit":  plug.Shutoff,
	}).Warn("Plug exceeded shutoff limit, relay opened")

	e.dispatcher.Emit(ctx, now, e.doc.TTSSettings, tts.Request{
		Kind:        tts.KindShutoff,
		Target:      key,
		MediaPlayer: room.MediaPlayer,
		Volume:      roomVolume(room, e.doc.TTSSettings),
		NoCooldown:  true,
		Vars: map[string]string{
			"room_name":   room.Name,
			"outlet_name": dev.Name,
			"plug":        plug.Name,
			"watts":       formatWatts(watts),
		},
	})
}
