package websocket

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testClient(id string) *Client {
	return &Client{
		ID:     id,
		send:   make(chan []byte, 4),
		logger: testLogger(),
		rooms:  make(map[string]bool),
	}
}

func TestBroadcastToRoomReachesOnlySubscribers(t *testing.T) {
	hub := NewHub(testLogger())

	kitchen := testClient("kitchen-kiosk")
	kitchen.SubscribeToRoom("kitchen")
	garage := testClient("garage-kiosk")
	hub.clients[kitchen] = true
	hub.clients[garage] = true

	hub.BroadcastToRoom("kitchen", RoomUpdateMessage("kitchen", map[string]interface{}{
		"total_watts": 120.0,
	}))

	select {
	case raw := <-kitchen.send:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("Failed to unmarshal room message: %v", err)
		}
		if msg.Type != MessageTypeRoomUpdate {
			t.Errorf("Expected type %q, got %q", MessageTypeRoomUpdate, msg.Type)
		}
		if msg.Data["room_id"] != "kitchen" {
			t.Errorf("Expected room_id 'kitchen', got %v", msg.Data["room_id"])
		}
	default:
		t.Fatal("Subscribed client received no message")
	}

	if len(garage.send) != 0 {
		t.Errorf("Unsubscribed client received %d messages", len(garage.send))
	}
}

func TestUnsubscribeStopsRoomMessages(t *testing.T) {
	hub := NewHub(testLogger())

	client := testClient("kiosk")
	client.SubscribeToRoom("kitchen")
	client.UnsubscribeFromRoom("kitchen")
	hub.clients[client] = true

	hub.BroadcastToRoom("kitchen", RoomUpdateMessage("kitchen", nil))

	if len(client.send) != 0 {
		t.Errorf("Unsubscribed client received %d messages", len(client.send))
	}
}
