package tts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/smartdash/energy-backend-go/internal/core/energy"
)

type spokenMessage struct {
	mediaPlayer string
	message     string
	language    string
	volume      float64
}

type fakeSpeaker struct {
	sent []spokenMessage
	err  error
}

func (f *fakeSpeaker) SendTTS(_ context.Context, mediaPlayer, message, language string, volume float64) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, spokenMessage{mediaPlayer, message, language, volume})
	return nil
}

func (f *fakeSpeaker) SetVolume(context.Context, string, float64) error { return nil }

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRender(t *testing.T) {
	msg := Render(energy.DefaultOutletWarnMsg, "Heads up.", map[string]string{
		"room_name":   "Kitchen",
		"outlet_name": "Counter",
		"watts":       "1850",
	})
	assert.Equal(t, "Heads up. Kitchen Counter is pulling 1850 watts", msg)
}

func TestRenderStoveTimers(t *testing.T) {
	msg := Render(energy.DefaultStoveUnattendedMsg, "Alert.", map[string]string{
		"cooking_time_minutes":  "15",
		"final_warning_seconds": "30",
	})
	assert.Contains(t, msg, "on for 15 minutes")
	assert.Contains(t, msg, "turn off in 30 seconds")
}

func TestEmitSendsAndRespectsCooldown(t *testing.T) {
	speaker := &fakeSpeaker{}
	d := NewDispatcher(speaker, time.Minute, testLogger())
	settings := energy.DefaultTTSSettings()

	now := time.Now()
	req := Request{
		Kind:        KindRoomWarning,
		Target:      "kitchen",
		MediaPlayer: "media_player.kitchen",
		Vars:        map[string]string{"room_name": "Kitchen", "watts": "2500"},
	}

	assert.True(t, d.Emit(context.Background(), now, settings, req))
	require.Len(t, speaker.sent, 1)
	assert.Equal(t, "media_player.kitchen", speaker.sent[0].mediaPlayer)
	assert.Contains(t, speaker.sent[0].message, "Kitchen is pulling 2500 watts")

	// within cooldown, suppressed
	assert.False(t, d.Emit(context.Background(), now.Add(30*time.Second), settings, req))
	assert.Len(t, speaker.sent, 1)

	// after cooldown, sent again
	assert.True(t, d.Emit(context.Background(), now.Add(61*time.Second), settings, req))
	assert.Len(t, speaker.sent, 2)
}

func TestEmitCooldownIsPerKindAndTarget(t *testing.T) {
	speaker := &fakeSpeaker{}
	d := NewDispatcher(speaker, time.Minute, testLogger())
	settings := energy.DefaultTTSSettings()
	now := time.Now()

	assert.True(t, d.Emit(context.Background(), now, settings, Request{
		Kind: KindRoomWarning, Target: "kitchen", MediaPlayer: "media_player.kitchen",
	}))
	assert.True(t, d.Emit(context.Background(), now, settings, Request{
		Kind: KindRoomWarning, Target: "garage", MediaPlayer: "media_player.garage",
	}))
	assert.True(t, d.Emit(context.Background(), now, settings, Request{
		Kind: KindOutletWarning, Target: "kitchen", MediaPlayer: "media_player.kitchen",
	}))
	assert.Len(t, speaker.sent, 3)
}

func TestEmitNoCooldownBypassesSuppression(t *testing.T) {
	speaker := &fakeSpeaker{}
	d := NewDispatcher(speaker, time.Minute, testLogger())
	settings := energy.DefaultTTSSettings()
	now := time.Now()

	req := Request{Kind: KindShutoff, Target: "o1/1", MediaPlayer: "media_player.kitchen", NoCooldown: true}
	assert.True(t, d.Emit(context.Background(), now, settings, req))
	assert.True(t, d.Emit(context.Background(), now.Add(time.Second), settings, req))
	assert.Len(t, speaker.sent, 2)
}

func TestEmitWithoutMediaPlayerStillCountsAsSent(t *testing.T) {
	speaker := &fakeSpeaker{}
	d := NewDispatcher(speaker, time.Minute, testLogger())

	var notified []Alert
	d.OnAlert(func(a Alert) { notified = append(notified, a) })

	sent := d.Emit(context.Background(), time.Now(), energy.DefaultTTSSettings(), Request{
		Kind: KindRoomWarning, Target: "kitchen",
		Vars: map[string]string{"room_name": "Kitchen", "watts": "900"},
	})

	assert.True(t, sent)
	assert.Empty(t, speaker.sent)
	require.Len(t, notified, 1)
	assert.Equal(t, KindRoomWarning, notified[0].Kind)
}

func TestEmitSpeakerFailureDoesNotPropagate(t *testing.T) {
	speaker := &fakeSpeaker{err: errors.New("player unreachable")}
	d := NewDispatcher(speaker, time.Minute, testLogger())

	sent := d.Emit(context.Background(), time.Now(), energy.DefaultTTSSettings(), Request{
		Kind: KindRoomWarning, Target: "kitchen", MediaPlayer: "media_player.kitchen",
	})
	assert.True(t, sent)
}
