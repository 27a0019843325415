package monitor

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdash/energy-backend-go/internal/adapters/homeassistant"
	"github.com/smartdash/energy-backend-go/internal/core/tts"
)

type stovePhase string

const (
	stoveOff   stovePhase = "off"
	stoveOn    stovePhase = "on"
	stoveWarn  stovePhase = "warning"
	stoveFinal stovePhase = "final_countdown"
)

// stoveState is the unattended-cooking watchdog state. Deadlines are wall
// clock instants compared on each tick, so a stalled tick loop never extends
// a countdown.
type stoveState struct {
	phase           stovePhase
	cookingDeadline time.Time
	finalDeadline   time.Time
	microwaveCut    bool
	relayFailures   int
}

func (s *stoveState) clearDeadlines() {
	s.cookingDeadline = time.Time{}
	s.finalDeadline = time.Time{}
}

// checkStove runs one watchdog pass: the microwave interlock first, then the
// presence-driven countdown machine.
func (e *Engine) checkStove(ctx context.Context, now time.Time, states homeassistant.StateMap) StoveSnapshot {
	cfg := &e.doc.StoveSafety
	if !cfg.Enabled() {
		e.stove = stoveState{phase: stoveOff}
		return StoveSnapshot{StoveState: string(stoveOff), TimerPhase: TimerPhaseNone}
	}

	st := &e.stove
	if st.phase == "" {
		st.phase = stoveOff
	}

	watts := states.PowerValue(cfg.StoveEntity)
	presence := cfg.PresenceSensor != "" && states.PresenceDetected(cfg.PresenceSensor)

	e.checkMicrowaveInterlock(ctx, now, states)

	if st.microwaveCut {
		return StoveSnapshot{
			Enabled:              true,
			StoveState:           stoveStateLabel(st.phase),
			CurrentPower:         watts,
			PresenceDetected:     presence,
			TimerPhase:           TimerPhaseNone,
			PowerCutForMicrowave: true,
		}
	}

	stoveRunning := watts > cfg.PowerThresholdWatts

	if st.phase == stoveOff && stoveRunning {
		st.phase = stoveOn
		e.emitStove(ctx, now, tts.KindStoveOn, nil)
	} else if st.phase != stoveOff && !stoveRunning {
		st.phase = stoveOff
		st.clearDeadlines()
		st.relayFailures = 0
		e.emitStove(ctx, now, tts.KindStoveOff, nil)
	}

	if st.phase != stoveOff {
		if presence {
			if st.phase != stoveOn {
				e.logger.Info("Presence returned to kitchen, stove countdown cancelled")
			}
			st.phase = stoveOn
			st.clearDeadlines()
		} else {
			e.advanceCountdown(ctx, now, cfg.CookingTimeMinutes, cfg.FinalWarningSeconds, cfg.StoveSwitch)
		}
	}

	snap := StoveSnapshot{
		Enabled:          true,
		StoveState:       stoveStateLabel(st.phase),
		CurrentPower:     watts,
		PresenceDetected: presence,
		TimerPhase:       TimerPhaseNone,
	}
	switch st.phase {
	case stoveWarn:
		snap.TimerPhase = TimerPhase15Min
		snap.TimeRemaining = remainingSeconds(st.cookingDeadline, now)
	case stoveFinal:
		snap.TimerPhase = TimerPhaseFinal
		snap.TimeRemaining = remainingSeconds(st.finalDeadline, now)
	}
	return snap
}

// advanceCountdown moves the watchdog through its absence phases.
func (e *Engine) advanceCountdown(ctx context.Context, now time.Time, cookingMinutes, finalSeconds int, stoveSwitch string) {
	st := &e.stove

	switch st.phase {
	case stoveOn:
		st.phase = stoveWarn
		st.cookingDeadline = now.Add(time.Duration(cookingMinutes) * time.Minute)
		e.emitStove(ctx, now, tts.KindStoveTimerStarted, map[string]string{
			"cooking_time_minutes": strconv.Itoa(cookingMinutes),
		})

	case stoveWarn:
		if now.Before(st.cookingDeadline) {
			return
		}
		st.phase = stoveFinal
		st.finalDeadline = now.Add(time.Duration(finalSeconds) * time.Second)
		e.emitStove(ctx, now, tts.KindStoveUnattended, map[string]string{
			"cooking_time_minutes":  strconv.Itoa(cookingMinutes),
			"final_warning_seconds": strconv.Itoa(finalSeconds),
		})

	case stoveFinal:
		if now.Before(st.finalDeadline) {
			return
		}
		e.forceStoveOff(ctx, now, stoveSwitch)
	}
}

// forceStoveOff opens the stove relay at the end of the final countdown.
// Failures retry next tick, with an audible alert after the retry limit.
func (e *Engine) forceStoveOff(ctx context.Context, now time.Time, stoveSwitch string) {
	st := &e.stove

	if stoveSwitch == "" {
		e.logger.Warn("Stove countdown expired but no stove relay is configured")
		st.phase = stoveOff
		st.clearDeadlines()
		return
	}

	if err := e.source.TurnOffSwitches(ctx, []string{stoveSwitch}); err != nil {
		st.relayFailures++
		relayFailures.Inc()
		e.logger.WithError(err).WithField("failures", st.relayFailures).Error("Stove auto-off relay command failed")
		if st.relayFailures >= e.relayRetryLimit {
			e.emitStove(ctx, now, tts.KindRelayFailure, map[string]string{
				"outlet_name": "the stove",
				"plug":        "relay",
			})
		}
		return
	}

	relayCommands.Inc()
	st.phase = stoveOff
	st.clearDeadlines()
	st.relayFailures = 0
	e.logger.Warn("Stove automatically turned off after unattended countdown")
	e.emitStove(ctx, now, tts.KindStoveAutoOff, nil)
}

// checkMicrowaveInterlock cuts stove power while the microwave draws load on
// the shared circuit and restores it when the microwave stops. The cut keys
// on the stove relay being on, independent of the countdown machine, which
// is suspended while the cut is active and restarts from the attended phase
// on restore.
func (e *Engine) checkMicrowaveInterlock(ctx context.Context, now time.Time, states homeassistant.StateMap) {
	cfg := &e.doc.StoveSafety
	st := &e.stove

	if cfg.MicrowaveEntity == "" || cfg.StoveSwitch == "" {
		return
	}

	microwaveOn := states.PowerValue(cfg.MicrowaveEntity) > cfg.MicrowaveThresholdWatts

	if microwaveOn && !st.microwaveCut {
		if !states.IsOn(cfg.StoveSwitch) {
			return
		}
		if err := e.source.TurnOffSwitches(ctx, []string{cfg.StoveSwitch}); err != nil {
			relayFailures.Inc()
			e.logger.WithError(err).Error("Microwave interlock cut command failed")
			return
		}
		relayCommands.Inc()
		st.microwaveCut = true
		e.logger.WithFields(logrus.Fields{
			"microwave": cfg.MicrowaveEntity,
		}).Warn("Microwave running, stove power cut")
		e.emitStove(ctx, now, tts.KindMicrowaveCut, nil)
		return
	}

	if !microwaveOn && st.microwaveCut {
		if err := e.source.TurnOnSwitches(ctx, []string{cfg.StoveSwitch}); err != nil {
			relayFailures.Inc()
			e.logger.WithError(err).Error("Microwave interlock restore command failed")
			return
		}
		relayCommands.Inc()
		st.microwaveCut = false
		st.phase = stoveOn
		st.clearDeadlines()
		e.logger.Info("Microwave stopped, stove power restored")
		e.emitStove(ctx, now, tts.KindMicrowaveRestore, nil)
	}
}

func (e *Engine) emitStove(ctx context.Context, now time.Time, kind tts.Kind, vars map[string]string) {
	cfg := &e.doc.StoveSafety
	e.dispatcher.Emit(ctx, now, e.doc.TTSSettings, tts.Request{
		Kind:        kind,
		Target:      "stove",
		MediaPlayer: cfg.MediaPlayer,
		Volume:      cfg.Volume,
		Vars:        vars,
		NoCooldown:  true,
	})
}

// stoveStateLabel collapses the internal phases to the reported on/off
// state; the countdown is carried separately in timer_phase.
func stoveStateLabel(phase stovePhase) string {
	if phase == stoveOff {
		return string(stoveOff)
	}
	return string(stoveOn)
}

func remainingSeconds(deadline, now time.Time) float64 {
	if deadline.IsZero() {
		return 0
	}
	remaining := deadline.Sub(now).Seconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}
