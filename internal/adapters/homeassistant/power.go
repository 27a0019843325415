package homeassistant

import (
	"strconv"
	"strings"
)

// PowerValue extracts instantaneous wattage for an entity. Sensors carry
// power as their state value; smart-plug switches expose it through the
// current_power_w attribute. Missing or unavailable entities read as 0 W.
func (m StateMap) PowerValue(entityID string) float64 {
	state, ok := m[entityID]
	if !ok {
		return 0
	}

	if strings.HasPrefix(entityID, "sensor.") {
		switch state.State {
		case "unknown", "unavailable", "":
			return 0
		}
		watts, err := strconv.ParseFloat(state.State, 64)
		if err != nil {
			return 0
		}
		return watts
	}

	if strings.HasPrefix(entityID, "switch.") {
		return toFloat(state.Attributes["current_power_w"])
	}

	return 0
}

// PresenceDetected interprets a binary presence sensor. Only explicit
// detection states count as present; unknown and unavailable read as absent.
func (m StateMap) PresenceDetected(entityID string) bool {
	state, ok := m[entityID]
	if !ok {
		return false
	}
	switch state.State {
	case "detected", "on":
		return true
	}
	return false
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
