package energy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *Document {
	doc := DefaultDocument()
	doc.Rooms = []Room{
		{
			ID:   "kitchen",
			Name: "Kitchen",
			Outlets: []Device{
				{ID: "o1", Name: "Counter", Type: DeviceOutlet, Plug1Entity: "sensor.counter_1", Plug2Entity: "sensor.counter_2"},
				{ID: "o2", Name: "Fridge", Type: DeviceSingleOutlet, Plug1Entity: "sensor.fridge"},
			},
		},
	}
	doc.BreakerLines = []BreakerLine{
		{ID: "b1", Name: "Kitchen Line", MaxLoadWatts: 2400, ThresholdWatts: 2000, OutletIDs: []string{"o1", "o2"}},
	}
	return doc
}

func TestValidateAcceptsDocument(t *testing.T) {
	doc := validDocument()
	Normalize(doc)
	assert.NoError(t, Validate(doc))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(doc *Document)
		problem string
	}{
		{
			name:    "room without name",
			mutate:  func(doc *Document) { doc.Rooms[0].Name = "" },
			problem: "name is required",
		},
		{
			name:    "negative shutoff",
			mutate:  func(doc *Document) { doc.Rooms[0].Outlets[0].Plug1Shutoff = -5 },
			problem: "must be non-negative",
		},
		{
			name:    "unknown device type",
			mutate:  func(doc *Document) { doc.Rooms[0].Outlets[0].Type = "dryer" },
			problem: "unknown type",
		},
		{
			name: "outlet on two breakers",
			mutate: func(doc *Document) {
				doc.BreakerLines = append(doc.BreakerLines, BreakerLine{
					ID: "b2", Name: "Second Line", MaxLoadWatts: 1800, OutletIDs: []string{"o1"},
				})
			},
			problem: "assigned to breakers",
		},
		{
			name:    "breaker threshold above max load",
			mutate:  func(doc *Document) { doc.BreakerLines[0].ThresholdWatts = 2600 },
			problem: "below max load",
		},
		{
			name:    "breaker references unknown outlet",
			mutate:  func(doc *Document) { doc.BreakerLines[0].OutletIDs = []string{"missing"} },
			problem: "unknown outlet id",
		},
		{
			name: "stove cooking time too short",
			mutate: func(doc *Document) {
				doc.StoveSafety.StoveEntity = "sensor.stove_power"
				doc.StoveSafety.CookingTimeMinutes = 0
			},
			problem: "cooking_time_minutes",
		},
		{
			name: "stove final warning too short",
			mutate: func(doc *Document) {
				doc.StoveSafety.StoveEntity = "sensor.stove_power"
				doc.StoveSafety.FinalWarningSeconds = 2
			},
			problem: "final_warning_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			err := Validate(doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestNormalizeGeneratesIDs(t *testing.T) {
	doc := DefaultDocument()
	doc.Rooms = []Room{
		{Name: "Living Room", Outlets: []Device{{Name: "TV Stand"}}},
	}
	doc.BreakerLines = []BreakerLine{{Name: "Main"}}

	Normalize(doc)

	assert.Equal(t, "living_room", doc.Rooms[0].ID)
	assert.NotEmpty(t, doc.Rooms[0].Outlets[0].ID)
	assert.Equal(t, DeviceOutlet, doc.Rooms[0].Outlets[0].Type)
	assert.NotEmpty(t, doc.BreakerLines[0].ID)
	assert.Equal(t, "#03a9f4", doc.BreakerLines[0].Color)
}

func TestNormalizeFillsTemplateDefaults(t *testing.T) {
	doc := &Document{}
	Normalize(doc)

	assert.Equal(t, DefaultTTSPrefix, doc.TTSSettings.Prefix)
	assert.Equal(t, DefaultShutoffMsg, doc.TTSSettings.ShutoffMsg)
	assert.Equal(t, DefaultResetMsg, doc.TTSSettings.ResetMsg)
	assert.Equal(t, DefaultStovePowerThreshold, doc.StoveSafety.PowerThresholdWatts)
	assert.InDelta(t, DefaultTTSVolume, doc.TTSSettings.Volume, 0.0001)
}

func TestNormalizeClampsVolume(t *testing.T) {
	doc := DefaultDocument()
	doc.Rooms = []Room{{Name: "Den", Volume: 1.7}}
	doc.StoveSafety.Volume = -0.3

	Normalize(doc)

	assert.Equal(t, 1.0, doc.Rooms[0].Volume)
	assert.Equal(t, 0.0, doc.StoveSafety.Volume)
}

func TestPlugsForDeviceTypes(t *testing.T) {
	dual := Device{Type: DeviceOutlet, Plug1Entity: "sensor.a", Plug2Entity: "sensor.b"}
	assert.Len(t, dual.Plugs(), 2)

	single := Device{Type: DeviceSingleOutlet, Plug1Entity: "sensor.a", Plug2Entity: "sensor.b"}
	require.Len(t, single.Plugs(), 1)
	assert.Equal(t, "sensor.a", single.Plugs()[0].Entity)

	stove := Device{Type: DeviceStove, Plug1Entity: "sensor.stove"}
	require.Len(t, stove.Plugs(), 1)
	assert.Equal(t, "Plug 1", stove.Plugs()[0].Name)
}
