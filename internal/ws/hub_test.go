package ws

import (
	"encoding/json"
	"testing"
)

func TestBroadcastReachesRegisteredClients(t *testing.T) {
	hub := NewHub()
	c := &Client{Send: make(chan []byte, 1)}
	hub.Register(c)

	hub.Broadcast("alert_sent", map[string]interface{}{"product_id": 7})

	select {
	case msg := <-c.Send:
		var decoded struct {
			Type string                 `json:"type"`
			Data map[string]interface{} `json:"data"`
		}
		if err := json.Unmarshal(msg, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if decoded.Type != "alert_sent" {
			t.Fatalf("type = %q, want alert_sent", decoded.Type)
		}
		if decoded.Data["product_id"] != float64(7) {
			t.Fatalf("product_id = %v, want 7", decoded.Data["product_id"])
		}
	default:
		t.Fatal("no message delivered")
	}
}

func TestBroadcastDropsWhenClientBufferFull(t *testing.T) {
	hub := NewHub()
	c := &Client{Send: make(chan []byte, 1)}
	hub.Register(c)

	hub.Broadcast("check_complete", 1)
	hub.Broadcast("check_complete", 2)

	if got := len(c.Send); got != 1 {
		t.Fatalf("buffered = %d, want 1", got)
	}
}

func TestCloseUnregisters(t *testing.T) {
	hub := NewHub()
	c := &Client{Send: make(chan []byte, 1)}
	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Fatalf("count = %d, want 1", hub.ClientCount())
	}

	c.Close()
	c.Close() // second close is a no-op

	if hub.ClientCount() != 0 {
		t.Fatalf("count = %d, want 0", hub.ClientCount())
	}
	hub.Broadcast("check_complete", nil)
}

func TestBroadcastDuringCloseDoesNotPanic(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			c := &Client{Send: make(chan []byte, 1)}
			hub.Register(c)
			c.Close()
		}
	}()
	for i := 0; i < 200; i++ {
		hub.Broadcast("check_complete", i)
	}
	<-done
}
