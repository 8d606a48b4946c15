package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

type fakeSnapshots struct {
	known map[string]interface{}
}

func (f *fakeSnapshots) Snapshot(jobID string) (interface{}, bool) {
	snap, ok := f.known[jobID]
	return snap, ok
}

func newTestClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, 4),
	}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case message := <-c.send:
		return message
	case <-time.After(1 * time.Second):
		t.Fatal("Client did not receive a message in time")
		return nil
	}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case message := <-c.send:
		t.Fatalf("Client unexpectedly received: %s", message)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient(hub)

	// Test registration
	hub.register <- client
	// Test broadcast
	hub.BroadcastJSON(map[string]string{"hello": "world"})

	received := receive(t, client)
	if string(received) != `{"hello":"world"}` {
		t.Errorf("Client received wrong message: got %s", received)
	}

	// Test unregistration
	hub.unregister <- client
	// Allow the hub to process the unregister message
	time.Sleep(10 * time.Millisecond)
	hub.BroadcastJSON(map[string]string{"after": "unregister"})
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("Unregistered client received a broadcast")
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishReachesOnlySubscribers(t *testing.T) {
	hub := NewHub()
	hub.SetSnapshotProvider(&fakeSnapshots{known: map[string]interface{}{}})
	go hub.Run()

	subscribed := newTestClient(hub)
	other := newTestClient(hub)
	hub.register <- subscribed
	hub.register <- other
	hub.subscribe <- subscription{client: subscribed, jobID: "job-1"}

	hub.Publish("job-1", "mebbis:progress", map[string]int{"total": 3})

	var env Envelope
	if err := json.Unmarshal(receive(t, subscribed), &env); err != nil {
		t.Fatalf("Failed to unmarshal frame: %v", err)
	}
	if env.Event != "mebbis:progress" {
		t.Errorf("Event = %s, want mebbis:progress", env.Event)
	}
	expectSilence(t, other)
}

// A connection subscribing to an already-running job immediately gets the
// full state snapshot, not just future deltas.
func TestLateSubscribeReplay(t *testing.T) {
	hub := NewHub()
	hub.SetSnapshotProvider(&fakeSnapshots{known: map[string]interface{}{
		"job-1": map[string]interface{}{"status": "running", "completed": 2},
	}})
	go hub.Run()

	client := newTestClient(hub)
	hub.register <- client
	hub.subscribe <- subscription{client: client, jobID: "job-1"}

	var env Envelope
	if err := json.Unmarshal(receive(t, client), &env); err != nil {
		t.Fatalf("Failed to unmarshal replay frame: %v", err)
	}
	if env.Event != "mebbis:snapshot" {
		t.Errorf("Replay event = %s, want mebbis:snapshot", env.Event)
	}
	payload, ok := env.Payload.(map[string]interface{})
	if !ok || payload["status"] != "running" {
		t.Errorf("Replay payload = %+v", env.Payload)
	}
}

// Subscribing to an unknown transfer id is a silent no-op.
func TestSubscribeUnknownJob(t *testing.T) {
	hub := NewHub()
	hub.SetSnapshotProvider(&fakeSnapshots{known: map[string]interface{}{}})
	go hub.Run()

	client := newTestClient(hub)
	hub.register <- client
	hub.subscribe <- subscription{client: client, jobID: "missing"}
	expectSilence(t, client)
}

// A connection holds at most one subscription; the newest one wins.
func TestSubscribeReplacesPrevious(t *testing.T) {
	hub := NewHub()
	hub.SetSnapshotProvider(&fakeSnapshots{known: map[string]interface{}{}})
	go hub.Run()

	client := newTestClient(hub)
	hub.register <- client
	hub.subscribe <- subscription{client: client, jobID: "job-1"}
	hub.subscribe <- subscription{client: client, jobID: "job-2"}

	hub.Publish("job-1", "mebbis:progress", nil)
	expectSilence(t, client)

	hub.Publish("job-2", "mebbis:progress", nil)
	var env Envelope
	if err := json.Unmarshal(receive(t, client), &env); err != nil {
		t.Fatalf("Failed to unmarshal frame: %v", err)
	}
	if env.Event != "mebbis:progress" {
		t.Errorf("Event = %s, want mebbis:progress", env.Event)
	}
}
