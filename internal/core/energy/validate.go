package energy

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError carries every rejected field so a save reports all
// problems at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid energy configuration: %s", strings.Join(e.Problems, "; "))
}

// Normalize fills generated ids, applies template defaults for blank
// fields and clamps volumes. Called before Validate on incoming documents.
func Normalize(doc *Document) {
	for ri := range doc.Rooms {
		room := &doc.Rooms[ri]
		if room.ID == "" {
			room.ID = slugOrUUID(room.Name)
		}
		room.Volume = clampVolume(room.Volume)
		for di := range room.Outlets {
			dev := &room.Outlets[di]
			if dev.ID == "" {
				dev.ID = uuid.NewString()
			}
			if dev.Type == "" {
				dev.Type = DeviceOutlet
			}
		}
	}
	for bi := range doc.BreakerLines {
		line := &doc.BreakerLines[bi]
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		if line.Color == "" {
			line.Color = "#03a9f4"
		}
	}

	doc.StoveSafety.Volume = clampVolume(doc.StoveSafety.Volume)
	if doc.StoveSafety.PowerThresholdWatts <= 0 {
		doc.StoveSafety.PowerThresholdWatts = DefaultStovePowerThreshold
	}
	if doc.StoveSafety.MicrowaveThresholdWatts <= 0 {
		doc.StoveSafety.MicrowaveThresholdWatts = DefaultMicrowaveThresholdWatts
	}

	defaults := DefaultTTSSettings()
	tts := &doc.TTSSettings
	if tts.Language == "" {
		tts.Language = defaults.Language
	}
	if tts.Speed <= 0 {
		tts.Speed = defaults.Speed
	}
	tts.Volume = clampVolume(tts.Volume)
	if tts.Volume == 0 {
		tts.Volume = defaults.Volume
	}
	if tts.Prefix == "" {
		tts.Prefix = defaults.Prefix
	}
	fillTemplate(&tts.RoomWarnMsg, defaults.RoomWarnMsg)
	fillTemplate(&tts.OutletWarnMsg, defaults.OutletWarnMsg)
	fillTemplate(&tts.ShutoffMsg, defaults.ShutoffMsg)
	fillTemplate(&tts.ResetMsg, defaults.ResetMsg)
	fillTemplate(&tts.BreakerWarnMsg, defaults.BreakerWarnMsg)
	fillTemplate(&tts.BreakerShutoffMsg, defaults.BreakerShutoffMsg)
	fillTemplate(&tts.StoveOnMsg, defaults.StoveOnMsg)
	fillTemplate(&tts.StoveOffMsg, defaults.StoveOffMsg)
	fillTemplate(&tts.StoveTimerStartedMsg, defaults.StoveTimerStartedMsg)
	fillTemplate(&tts.StoveUnattendedMsg, defaults.StoveUnattendedMsg)
	fillTemplate(&tts.StoveFinalWarnMsg, defaults.StoveFinalWarnMsg)
	fillTemplate(&tts.StoveAutoOffMsg, defaults.StoveAutoOffMsg)
	fillTemplate(&tts.MicrowaveCutMsg, defaults.MicrowaveCutMsg)
	fillTemplate(&tts.MicrowaveRestoreMsg, defaults.MicrowaveRestoreMsg)
}

// Validate checks document invariants. The caller keeps the prior
// configuration when an error is returned.
func Validate(doc *Document) error {
	var problems []string

	deviceIDs := make(map[string]bool)
	for _, room := range doc.Rooms {
		if room.Name == "" {
			problems = append(problems, fmt.Sprintf("room %q: name is required", room.ID))
		}
		if room.ThresholdWatts < 0 {
			problems = append(problems, fmt.Sprintf("room %q: threshold must be non-negative", room.Name))
		}
		for _, dev := range room.Outlets {
			if dev.Name == "" {
				problems = append(problems, fmt.Sprintf("room %q: outlet %q: name is required", room.Name, dev.ID))
			}
			switch dev.Type {
			case DeviceOutlet, DeviceSingleOutlet, DeviceStove, DeviceMicrowave:
			default:
				problems = append(problems, fmt.Sprintf("outlet %q: unknown type %q", dev.Name, dev.Type))
			}
			if dev.ThresholdWatts < 0 || dev.Plug1Shutoff < 0 || dev.Plug2Shutoff < 0 {
				problems = append(problems, fmt.Sprintf("outlet %q: thresholds must be non-negative", dev.Name))
			}
			if deviceIDs[dev.ID] {
				problems = append(problems, fmt.Sprintf("outlet id %q: duplicated", dev.ID))
			}
			deviceIDs[dev.ID] = true
		}
	}

	assigned := make(map[string]string)
	for _, line := range doc.BreakerLines {
		if line.Name == "" {
			problems = append(problems, fmt.Sprintf("breaker %q: name is required", line.ID))
		}
		if line.MaxLoadWatts < 0 || line.ThresholdWatts < 0 {
			problems = append(problems, fmt.Sprintf("breaker %q: loads must be non-negative", line.Name))
		}
		if line.ThresholdWatts > 0 && line.MaxLoadWatts > 0 && line.ThresholdWatts >= line.MaxLoadWatts {
			problems = append(problems, fmt.Sprintf("breaker %q: warning threshold must be below max load", line.Name))
		}
		for _, outletID := range line.OutletIDs {
			if !deviceIDs[outletID] {
				problems = append(problems, fmt.Sprintf("breaker %q: unknown outlet id %q", line.Name, outletID))
				continue
			}
			if prev, ok := assigned[outletID]; ok {
				problems = append(problems, fmt.Sprintf("outlet %q: assigned to breakers %q and %q", outletID, prev, line.Name))
				continue
			}
			assigned[outletID] = line.Name
		}
	}

	if doc.StoveSafety.Enabled() {
		if doc.StoveSafety.CookingTimeMinutes < 1 {
			problems = append(problems, "stove_safety: cooking_time_minutes must be at least 1")
		}
		if doc.StoveSafety.FinalWarningSeconds < 5 {
			problems = append(problems, "stove_safety: final_warning_seconds must be at least 5")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func fillTemplate(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func slugOrUUID(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "_")
	if slug == "" {
		return uuid.NewString()
	}
	return slug
}
