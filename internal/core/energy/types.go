package energy

// DeviceType discriminates the configured device variants. The variant
// decides how many plug slots a device carries and how its warning
// threshold is applied.
type DeviceType string

const (
	DeviceOutlet       DeviceType = "outlet"        // two plugs, threshold on the sum
	DeviceSingleOutlet DeviceType = "single_outlet" // one plug
	DeviceStove        DeviceType = "stove"         // appliance, one plug, no relay required
	DeviceMicrowave    DeviceType = "microwave"     // appliance, one plug
)

// ActiveWatts is the floor above which a plug counts as actively drawing power.
const ActiveWatts = 0.1

// Device is a configured outlet or appliance. Thresholds of 0 are sentinels
// meaning "disabled", never a zero-watt limit.
type Device struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          DeviceType `json:"type"`
	Plug1Entity   string     `json:"plug1_entity,omitempty"`
	Plug1Switch   string     `json:"plug1_switch,omitempty"`
	Plug1Shutoff  float64    `json:"plug1_shutoff,omitempty"`
	Plug2Entity   string     `json:"plug2_entity,omitempty"`
	Plug2Switch   string     `json:"plug2_switch,omitempty"`
	Plug2Shutoff  float64    `json:"plug2_shutoff,omitempty"`
	ThresholdWatts float64   `json:"threshold,omitempty"`
}

// PlugRef identifies one plug slot of a device.
type PlugRef struct {
	Slot    int
	Name    string
	Entity  string
	Switch  string
	Shutoff float64
}

// HasSecondPlug reports whether the device type carries a second plug slot.
func (d *Device) HasSecondPlug() bool {
	return d.Type == DeviceOutlet
}

// Plugs returns the configured plug slots for the device's type. Slots
// without a power entity are omitted.
func (d *Device) Plugs() []PlugRef {
	var refs []PlugRef
	if d.Plug1Entity != "" {
		refs = append(refs, PlugRef{Slot: 1, Name: "Plug 1", Entity: d.Plug1Entity, Switch: d.Plug1Switch, Shutoff: d.Plug1Shutoff})
	}
	if d.HasSecondPlug() && d.Plug2Entity != "" {
		refs = append(refs, PlugRef{Slot: 2, Name: "Plug 2", Entity: d.Plug2Entity, Switch: d.Plug2Switch, Shutoff: d.Plug2Shutoff})
	}
	return refs
}

// Room groups devices for aggregation and alert targeting. Device order is
// display order only.
type Room struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	AreaID         string   `json:"area_id,omitempty"`
	MediaPlayer    string   `json:"media_player,omitempty"`
	Volume         float64  `json:"volume,omitempty"`
	ThresholdWatts float64  `json:"threshold,omitempty"`
	Outlets        []Device `json:"outlets"`
}

// BreakerLine is a monitored circuit aggregating assigned outlets against a
// hard max load. ThresholdWatts is the optional soft warning level.
type BreakerLine struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Color          string   `json:"color,omitempty"`
	MaxLoadWatts   float64  `json:"max_load"`
	ThresholdWatts float64  `json:"threshold,omitempty"`
	OutletIDs      []string `json:"outlet_ids"`
}

// StoveSafety configures the unattended-cooking watchdog.
type StoveSafety struct {
	StoveEntity             string  `json:"stove_plug_entity,omitempty"`
	StoveSwitch             string  `json:"stove_plug_switch,omitempty"`
	PowerThresholdWatts     float64 `json:"stove_power_threshold"`
	CookingTimeMinutes      int     `json:"cooking_time_minutes"`
	FinalWarningSeconds     int     `json:"final_warning_seconds"`
	PresenceSensor          string  `json:"presence_sensor,omitempty"`
	MediaPlayer             string  `json:"media_player,omitempty"`
	Volume                  float64 `json:"volume"`
	MicrowaveEntity         string  `json:"microwave_plug_entity,omitempty"`
	MicrowaveThresholdWatts float64 `json:"microwave_power_threshold"`
}

// Enabled reports whether the watchdog has enough configuration to run.
func (s *StoveSafety) Enabled() bool {
	return s.StoveEntity != ""
}

// TTSSettings holds the operator-customizable alert templates. Templates
// substitute {prefix}, {room_name}, {outlet_name}, {plug}, {watts},
// {breaker_name}, {cooking_time_minutes} and {final_warning_seconds}.
type TTSSettings struct {
	Language            string  `json:"language"`
	Speed               float64 `json:"speed"`
	Volume              float64 `json:"volume"`
	Prefix              string  `json:"prefix"`
	RoomWarnMsg         string  `json:"room_warn_msg"`
	OutletWarnMsg       string  `json:"outlet_warn_msg"`
	ShutoffMsg          string  `json:"shutoff_msg"`
	ResetMsg            string  `json:"reset_msg"`
	BreakerWarnMsg      string  `json:"breaker_warn_msg"`
	BreakerShutoffMsg   string  `json:"breaker_shutoff_msg"`
	StoveOnMsg          string  `json:"stove_on_msg"`
	StoveOffMsg         string  `json:"stove_off_msg"`
	StoveTimerStartedMsg string `json:"stove_timer_started_msg"`
	StoveUnattendedMsg  string  `json:"stove_15min_warn_msg"`
	StoveFinalWarnMsg   string  `json:"stove_30sec_warn_msg"`
	StoveAutoOffMsg     string  `json:"stove_auto_off_msg"`
	MicrowaveCutMsg     string  `json:"microwave_cut_power_msg"`
	MicrowaveRestoreMsg string  `json:"microwave_restore_power_msg"`
}

// Document is the persisted energy configuration replaced atomically by
// save operations.
type Document struct {
	Rooms        []Room        `json:"rooms"`
	BreakerLines []BreakerLine `json:"breaker_lines"`
	StoveSafety  StoveSafety   `json:"stove_safety"`
	TTSSettings  TTSSettings   `json:"tts_settings"`
}

// Default TTS values.
const (
	DefaultTTSLanguage = "en"
	DefaultTTSSpeed    = 1.0
	DefaultTTSVolume   = 0.7
	DefaultTTSPrefix   = "Message from Home Energy."
)

// Default alert templates.
const (
	DefaultRoomWarnMsg          = "{prefix} {room_name} is pulling {watts} watts"
	DefaultOutletWarnMsg        = "{prefix} {room_name} {outlet_name} is pulling {watts} watts"
	DefaultShutoffMsg           = "{prefix} {room_name} {outlet_name} {plug} has been reset to protect circuit from overload"
	DefaultResetMsg             = "{prefix} {room_name} {outlet_name} {plug} power has been restored after a safety shutoff"
	DefaultBreakerWarnMsg       = "{prefix} {breaker_name} is near its max load, reduce electric use to prevent safety shutoff"
	DefaultBreakerShutoffMsg    = "{prefix} {breaker_name} is currently at its max limit, safety shutoff enabled"
	DefaultStoveOnMsg           = "{prefix} Stove has been turned on"
	DefaultStoveOffMsg          = "{prefix} Stove has been turned off"
	DefaultStoveTimerStartedMsg = "{prefix} The stove is on with no one in the kitchen. A {cooking_time_minutes} minute Unattended cooking timer has started."
	DefaultStoveUnattendedMsg   = "{prefix} Stove has been on for {cooking_time_minutes} minutes with no one in the kitchen. Stove will automatically turn off in {final_warning_seconds} seconds if no one returns"
	DefaultStoveFinalWarnMsg    = "{prefix} Stove will automatically turn off in {final_warning_seconds} seconds if no one returns to the kitchen"
	DefaultStoveAutoOffMsg      = "{prefix} Stove has been automatically turned off for safety"
	DefaultMicrowaveCutMsg      = "{prefix} Microwave is on. Stove power cut to protect circuit. Power will restore when microwave is off."
	DefaultMicrowaveRestoreMsg  = "{prefix} Microwave is off. Stove power restored."
)

// Default stove safety values.
const (
	DefaultStovePowerThreshold     = 100.0
	DefaultCookingTimeMinutes      = 15
	DefaultFinalWarningSeconds     = 30
	DefaultMicrowaveThresholdWatts = 50.0
)

// DefaultTTSSettings returns the factory alert settings.
func DefaultTTSSettings() TTSSettings {
	return TTSSettings{
		Language:             DefaultTTSLanguage,
		Speed:                DefaultTTSSpeed,
		Volume:               DefaultTTSVolume,
		Prefix:               DefaultTTSPrefix,
		RoomWarnMsg:          DefaultRoomWarnMsg,
		OutletWarnMsg:        DefaultOutletWarnMsg,
		ShutoffMsg:           DefaultShutoffMsg,
		ResetMsg:             DefaultResetMsg,
		BreakerWarnMsg:       DefaultBreakerWarnMsg,
		BreakerShutoffMsg:    DefaultBreakerShutoffMsg,
		StoveOnMsg:           DefaultStoveOnMsg,
		StoveOffMsg:          DefaultStoveOffMsg,
		StoveTimerStartedMsg: DefaultStoveTimerStartedMsg,
		StoveUnattendedMsg:   DefaultStoveUnattendedMsg,
		StoveFinalWarnMsg:    DefaultStoveFinalWarnMsg,
		StoveAutoOffMsg:      DefaultStoveAutoOffMsg,
		MicrowaveCutMsg:      DefaultMicrowaveCutMsg,
		MicrowaveRestoreMsg:  DefaultMicrowaveRestoreMsg,
	}
}

// DefaultDocument returns an empty configuration with factory defaults.
func DefaultDocument() *Document {
	return &Document{
		Rooms:        []Room{},
		BreakerLines: []BreakerLine{},
		StoveSafety: StoveSafety{
			PowerThresholdWatts:     DefaultStovePowerThreshold,
			CookingTimeMinutes:      DefaultCookingTimeMinutes,
			FinalWarningSeconds:     DefaultFinalWarningSeconds,
			Volume:                  DefaultTTSVolume,
			MicrowaveThresholdWatts: DefaultMicrowaveThresholdWatts,
		},
		TTSSettings: DefaultTTSSettings(),
	}
}

// DeviceByID finds a device across all rooms.
func (d *Document) DeviceByID(id string) (*Device, *Room) {
	for ri := range d.Rooms {
		room := &d.Rooms[ri]
		for di := range room.Outlets {
			if room.Outlets[di].ID == id {
				return &room.Outlets[di], room
			}
		}
	}
	return nil, nil
}

// BreakerByID finds a breaker line.
func (d *Document) BreakerByID(id string) *BreakerLine {
	for i := range d.BreakerLines {
		if d.BreakerLines[i].ID == id {
			return &d.BreakerLines[i]
		}
	}
	return nil
}
