package tts

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdash/energy-backend-go/internal/core/energy"
)

// Kind identifies an alert event kind. Cooldown suppression is keyed by
// (kind, target).
type Kind string

const (
	KindRoomWarning       Kind = "room_warning"
	KindOutletWarning     Kind = "outlet_warning"
	KindShutoff           Kind = "shutoff"
	KindReset             Kind = "reset"
	KindBreakerWarning    Kind = "breaker_warning"
	KindBreakerShutoff    Kind = "breaker_shutoff"
	KindRelayFailure      Kind = "relay_failure"
	KindStoveOn           Kind = "stove_on"
	KindStoveOff          Kind = "stove_off"
	KindStoveTimerStarted Kind = "stove_timer_started"
	KindStoveUnattended   Kind = "stove_unattended"
	KindStoveFinalWarning Kind = "stove_final_warning"
	KindStoveAutoOff      Kind = "stove_auto_off"
	KindMicrowaveCut      Kind = "microwave_cut"
	KindMicrowaveRestore  Kind = "microwave_restore"
)

// Alert is a dispatched alert, also pushed to realtime subscribers.
type Alert struct {
	Kind    Kind      `json:"kind"`
	Target  string    `json:"target"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// Request describes one alert to emit.
type Request struct {
	Kind        Kind
	Target      string
	MediaPlayer string
	Volume      float64
	Vars        map[string]string
	// NoCooldown bypasses suppression, used for one-shot events that are
	// already edge-triggered upstream (shutoff, reset, stove transitions).
	NoCooldown bool
}

type cooldownKey struct {
	kind   Kind
	target string
}

// Dispatcher renders templated alerts and speaks them with per-(kind,target)
// cooldown suppression. Dispatch failures are logged and dropped; they never
// propagate to the safety path.
type Dispatcher struct {
	speaker  Speaker
	logger   *logrus.Logger
	cooldown time.Duration
	timeout  time.Duration
	lastSent map[cooldownKey]time.Time
	notify   func(Alert)
}

// NewDispatcher creates an alert dispatcher.
func NewDispatcher(speaker Speaker, cooldown time.Duration, logger *logrus.Logger) *Dispatcher {
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Dispatcher{
		speaker:  speaker,
		logger:   logger,
		cooldown: cooldown,
		timeout:  5 * time.Second,
		lastSent: make(map[cooldownKey]time.Time),
	}
}

// OnAlert registers a hook invoked for every sent alert.
func (d *Dispatcher) OnAlert(fn func(Alert)) {
	d.notify = fn
}

// Emit renders and sends one alert. Returns true when the alert was sent,
// false when suppressed by cooldown. Only called from the tick loop, so the
// cooldown map needs no locking.
func (d *Dispatcher) Emit(ctx context.Context, now time.Time, settings energy.TTSSettings, req Request) bool {
	key := cooldownKey{kind: req.Kind, target: req.Target}
	if !req.NoCooldown {
		if last, ok := d.lastSent[key]; ok && now.Sub(last) < d.cooldown {
			return false
		}
	}
	d.lastSent[key] = now

	message := Render(templateFor(settings, req.Kind), settings.Prefix, req.Vars)
	alert := Alert{Kind: req.Kind, Target: req.Target, Message: message, SentAt: now}

	if d.notify != nil {
		d.notify(alert)
	}

	if req.MediaPlayer == "" {
		d.logger.WithFields(logrus.Fields{
			"kind":   req.Kind,
			"target": req.Target,
		}).Debug("No media player for alert, skipping TTS")
		return true
	}

	volume := req.Volume
	if volume <= 0 {
		volume = settings.Volume
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.speaker.SendTTS(sendCtx, req.MediaPlayer, message, settings.Language, volume); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"kind":         req.Kind,
			"target":       req.Target,
			"media_player": req.MediaPlayer,
		}).Error("Failed to dispatch alert")
		return true
	}

	d.logger.WithFields(logrus.Fields{
		"kind":    req.Kind,
		"target":  req.Target,
		"message": message,
	}).Info("Alert dispatched")
	return true
}

// Render substitutes {name} variables into a template. The prefix is always
// available as {prefix}.
func Render(template, prefix string, vars map[string]string) string {
	pairs := make([]string, 0, (len(vars)+1)*2)
	pairs = append(pairs, "{prefix}", prefix)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func templateFor(settings energy.TTSSettings, kind Kind) string {
	switch kind {
	case KindRoomWarning:
		return settings.RoomWarnMsg
	case KindOutletWarning:
		return settings.OutletWarnMsg
	case KindShutoff:
		return settings.ShutoffMsg
	case KindReset:
		return settings.ResetMsg
	case KindBreakerWarning:
		return settings.BreakerWarnMsg
	case KindBreakerShutoff:
		return settings.BreakerShutoffMsg
	case KindRelayFailure:
		return "{prefix} Unable to switch off {outlet_name} {plug}, please check the device"
	case KindStoveOn:
		return settings.StoveOnMsg
	case KindStoveOff:
		return settings.StoveOffMsg
	case KindStoveTimerStarted:
		return settings.StoveTimerStartedMsg
	case KindStoveUnattended:
		return settings.StoveUnattendedMsg
	case KindStoveFinalWarning:
		return settings.StoveFinalWarnMsg
	case KindStoveAutoOff:
		return settings.StoveAutoOffMsg
	case KindMicrowaveCut:
		return settings.MicrowaveCutMsg
	case KindMicrowaveRestore:
		return settings.MicrowaveRestoreMsg
	}
	return "{prefix}"
}
