package wsserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"

	"github.com/modulhaus/backoffice/internal/bus/syncbus"
	"github.com/modulhaus/backoffice/internal/config"
)

func TestBridgeRelaysBroadcasts(t *testing.T) {
	bus := syncbus.New()
	bridge := NewBridge(bus, config.SyncConfig{WriteRate: 100, WriteBurst: 100, QueueSize: 8})

	server := httptest.NewServer(bridge)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Subscription is registered inside the handler; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("bridge never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := bus.Publish(ctx, syncbus.Event{OrderID: "ord-1", NewStatus: "Shipped"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msgType, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.MessageText {
		t.Errorf("message type = %v", msgType)
	}
	var evt syncbus.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.OrderID != "ord-1" || evt.NewStatus != "Shipped" {
		t.Errorf("event = %+v", evt)
	}
}

func TestBridgeUnsubscribesOnDisconnect(t *testing.T) {
	bus := syncbus.New()
	bridge := NewBridge(bus, config.SyncConfig{WriteRate: 100, WriteBurst: 100, QueueSize: 8})

	server := httptest.NewServer(bridge)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("bridge never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "done")

	deadline = time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("bridge kept its subscription after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
