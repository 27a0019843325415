package websocket

import (
	"encoding/json"
	"strconv"
	"time"
)

// Message types pushed to dashboard clients.
const (
	MessageTypeEnergyUpdate  = "energy_update"
	MessageTypeRoomUpdate    = "room_update"
	MessageTypeBreakerUpdate = "breaker_update"
	MessageTypeStoveUpdate   = "stove_update"
	MessageTypeAlert         = "alert"
	MessageTypeConfigUpdated = "config_updated"
	MessageTypeConnection    = "connection"
	MessageTypeHeartbeat     = "heartbeat"
)

// Message represents a WebSocket message
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() []byte {
	m.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(m)
	return data
}

// UnmarshalJSON accepts the timestamp formats dashboard clients actually
// send: RFC3339, unix seconds or milliseconds, as string or number.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      string                 `json:"type"`
		Data      map[string]interface{} `json:"data"`
		Timestamp interface{}            `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Type = raw.Type
	m.Data = raw.Data
	m.Timestamp = parseTimestamp(raw.Timestamp)
	return nil
}

func parseTimestamp(v interface{}) time.Time {
	switch ts := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t
		}
		if n, err := strconv.ParseInt(ts, 10, 64); err == nil {
			return unixTimestamp(n)
		}
	case float64:
		return unixTimestamp(int64(ts))
	case int64:
		return unixTimestamp(ts)
	case int:
		return unixTimestamp(int64(ts))
	}
	return time.Now().UTC()
}

// unixTimestamp treats values above 1e12 as milliseconds.
func unixTimestamp(n int64) time.Time {
	if n > 1_000_000_000_000 {
		return time.Unix(0, n*int64(time.Millisecond))
	}
	return time.Unix(n, 0)
}

// EnergyUpdateMessage wraps a tick snapshot for broadcast.
func EnergyUpdateMessage(snapshot interface{}) Message {
	return Message{
		Type: MessageTypeEnergyUpdate,
		Data: map[string]interface{}{
			"snapshot": snapshot,
		},
	}
}

// RoomUpdateMessage wraps one room's slice of a tick snapshot for clients
// subscribed to that room.
func RoomUpdateMessage(roomID string, room interface{}) Message {
	return Message{
		Type: MessageTypeRoomUpdate,
		Data: map[string]interface{}{
			"room_id": roomID,
			"room":    room,
		},
	}
}

// BreakerUpdateMessage wraps the breaker view of a tick snapshot.
func BreakerUpdateMessage(breakers interface{}) Message {
	return Message{
		Type: MessageTypeBreakerUpdate,
		Data: map[string]interface{}{
			"breaker_lines": breakers,
		},
	}
}

// StoveUpdateMessage wraps the stove view of a tick snapshot.
func StoveUpdateMessage(stove interface{}) Message {
	return Message{
		Type: MessageTypeStoveUpdate,
		Data: map[string]interface{}{
			"stove": stove,
		},
	}
}

// AlertMessage wraps a dispatched alert for broadcast.
func AlertMessage(kind, target, message string, sentAt time.Time) Message {
	return Message{
		Type: MessageTypeAlert,
		Data: map[string]interface{}{
			"kind":    kind,
			"target":  target,
			"message": message,
			"sent_at": sentAt.UTC(),
		},
	}
}

// ConfigUpdatedMessage announces that a configuration document changed.
func ConfigUpdatedMessage(section string) Message {
	return Message{
		Type: MessageTypeConfigUpdated,
		Data: map[string]interface{}{
			"section": section,
		},
	}
}
