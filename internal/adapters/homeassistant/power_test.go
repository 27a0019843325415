package homeassistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPowerValue(t *testing.T) {
	states := BuildStateMap([]EntityState{
		{EntityID: "sensor.plug_power", State: "142.7"},
		{EntityID: "sensor.broken", State: "unavailable"},
		{EntityID: "sensor.garbage", State: "not-a-number"},
		{EntityID: "switch.heater", State: "on", Attributes: map[string]interface{}{"current_power_w": 980.5}},
		{EntityID: "switch.lamp", State: "on", Attributes: map[string]interface{}{}},
		{EntityID: "light.kitchen", State: "on"},
	})

	tests := []struct {
		name     string
		entityID string
		want     float64
	}{
		{"sensor state value", "sensor.plug_power", 142.7},
		{"unavailable sensor reads zero", "sensor.broken", 0},
		{"unparseable sensor reads zero", "sensor.garbage", 0},
		{"switch power attribute", "switch.heater", 980.5},
		{"switch without attribute", "switch.lamp", 0},
		{"unsupported domain", "light.kitchen", 0},
		{"missing entity", "sensor.absent", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, states.PowerValue(tt.entityID))
		})
	}
}

func TestPresenceDetected(t *testing.T) {
	states := BuildStateMap([]EntityState{
		{EntityID: "binary_sensor.kitchen_motion", State: "detected"},
		{EntityID: "binary_sensor.hall_motion", State: "on"},
		{EntityID: "binary_sensor.clear", State: "clear"},
		{EntityID: "binary_sensor.gone", State: "unavailable"},
	})

	assert.True(t, states.PresenceDetected("binary_sensor.kitchen_motion"))
	assert.True(t, states.PresenceDetected("binary_sensor.hall_motion"))
	assert.False(t, states.PresenceDetected("binary_sensor.clear"))
	assert.False(t, states.PresenceDetected("binary_sensor.gone"))
	assert.False(t, states.PresenceDetected("binary_sensor.absent"))
}

func TestIsOn(t *testing.T) {
	states := BuildStateMap([]EntityState{
		{EntityID: "switch.a", State: "on"},
		{EntityID: "switch.b", State: "off"},
	})

	assert.True(t, states.IsOn("switch.a"))
	assert.False(t, states.IsOn("switch.b"))
	assert.False(t, states.IsOn("switch.c"))
}
