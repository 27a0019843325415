package homeassistant

import "time"

// EntityState represents an entity state returned by the states API
type EntityState struct {
	EntityID    string                 `json:"entity_id"`
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes"`
	LastChanged time.Time              `json:"last_changed"`
	LastUpdated time.Time              `json:"last_updated"`
}

// HAConfig represents the Home Assistant instance configuration
type HAConfig struct {
	Version      string `json:"version"`
	LocationName string `json:"location_name"`
	TimeZone     string `json:"time_zone"`
	State        string `json:"state"`
}

// StateMap is a point-in-time snapshot of entity states keyed by entity id.
// One snapshot is pulled per engine tick so every evaluation within the tick
// sees the same readings.
type StateMap map[string]EntityState

// BuildStateMap indexes a states response by entity id.
func BuildStateMap(states []EntityState) StateMap {
	m := make(StateMap, len(states))
	for _, s := range states {
		m[s.EntityID] = s
	}
	return m
}

// Get returns the state for an entity, if present.
func (m StateMap) Get(entityID string) (EntityState, bool) {
	s, ok := m[entityID]
	return s, ok
}

// IsOn reports whether a switch-like entity is in the "on" state.
func (m StateMap) IsOn(entityID string) bool {
	s, ok := m[entityID]
	return ok && s.State == "on"
}
