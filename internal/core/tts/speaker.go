package tts

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smartdash/energy-backend-go/internal/adapters/homeassistant"
)

// Speaker delivers a rendered alert to a media player.
type Speaker interface {
	SendTTS(ctx context.Context, mediaPlayer, message, language string, volume float64) error
	SetVolume(ctx context.Context, mediaPlayer string, volume float64) error
}

// HASpeaker speaks through Home Assistant's tts service, setting the player
// volume first. A failed tts.speak falls back to google_translate_say before
// giving up.
type HASpeaker struct {
	client homeassistant.RESTClient
	logger *logrus.Logger
}

// NewHASpeaker creates a Speaker backed by the Home Assistant API.
func NewHASpeaker(client homeassistant.RESTClient, logger *logrus.Logger) *HASpeaker {
	return &HASpeaker{client: client, logger: logger}
}

// SendTTS speaks a message on the given media player.
func (s *HASpeaker) SendTTS(ctx context.Context, mediaPlayer, message, language string, volume float64) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("empty TTS message")
	}
	if mediaPlayer == "" {
		return fmt.Errorf("no media player specified")
	}
	if language == "" {
		language = "en"
	}

	if volume > 0 {
		if err := s.SetVolume(ctx, mediaPlayer, volume); err != nil {
			s.logger.WithError(err).WithField("media_player", mediaPlayer).Warn("Failed to set volume before TTS")
		}
	}

	err := s.client.CallService(ctx, "tts", "speak", map[string]interface{}{
		"entity_id":              mediaPlayer,
		"media_player_entity_id": mediaPlayer,
		"message":                message,
		"language":               language,
	})
	if err == nil {
		return nil
	}

	s.logger.WithError(err).WithField("media_player", mediaPlayer).Warn("tts.speak failed, trying fallback")

	fallbackErr := s.client.CallService(ctx, "tts", "google_translate_say", map[string]interface{}{
		"entity_id": mediaPlayer,
		"message":   message,
		"language":  language,
	})
	if fallbackErr != nil {
		return fmt.Errorf("tts failed: %w (fallback: %v)", err, fallbackErr)
	}
	return nil
}

// SetVolume sets a media player volume, clamped to [0, 1].
func (s *HASpeaker) SetVolume(ctx context.Context, mediaPlayer string, volume float64) error {
	if mediaPlayer == "" {
		return fmt.Errorf("no media player specified")
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	return s.client.CallService(ctx, "media_player", "volume_set", map[string]interface{}{
		"entity_id":    mediaPlayer,
		"volume_level": volume,
	})
}
