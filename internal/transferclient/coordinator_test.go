package transferclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
)

// fakePortal plays the server side: the two REST endpoints plus the
// progress socket.
type fakePortal struct {
	startResponse string
	dropOnce      bool // close the first socket right after its subscribe
	refuseSocket  bool

	mu         sync.Mutex
	startBody  string
	cancelBody string
	conns      []*gws.Conn
	dropsLeft  int

	subscribed chan string
	dropped    chan struct{}
	upgrader   gws.Upgrader
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		startResponse: `{"success":true,"transferId":"t-1","totalSessions":2}`,
		subscribed:    make(chan string, 8),
		dropped:       make(chan struct{}, 8),
	}
}

func (p *fakePortal) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mebbis/start-transfer", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		p.mu.Lock()
		p.startBody = string(body)
		response := p.startResponse
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(response))
	})
	mux.HandleFunc("/api/mebbis/cancel-transfer", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			TransferID string `json:"transferId"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		p.mu.Lock()
		p.cancelBody = payload.TransferID
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		if p.refuseSocket {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := p.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		p.mu.Lock()
		p.conns = append(p.conns, conn)
		drop := p.dropOnce && p.dropsLeft > 0
		if drop {
			p.dropsLeft--
		}
		p.mu.Unlock()

		for {
			var msg struct {
				Event      string `json:"event"`
				TransferID string `json:"transferId"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				p.dropped <- struct{}{}
				return
			}
			if msg.Event == "mebbis:subscribe" {
				p.subscribed <- msg.TransferID
				if drop {
					conn.Close()
				}
			}
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		p.mu.Lock()
		for _, c := range p.conns {
			c.Close()
		}
		p.mu.Unlock()
		server.Close()
	})
	return server
}

// publish writes an envelope to every live socket.
func (p *fakePortal) publish(t *testing.T, event string, payload interface{}) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, conn := range p.conns {
		conn.WriteJSON(map[string]interface{}{"event": event, "payload": payload})
	}
}

func waitForString(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("Got %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Timed out waiting for %q", want)
	}
}

func TestStartTransferSubscribes(t *testing.T) {
	portal := newFakePortal()
	server := portal.server(t)

	events := make(chan string, 8)
	coord := New(Options{
		BaseURL: server.URL,
		OnEvent: func(event string, payload json.RawMessage) { events <- event },
		Backoff: time.Millisecond,
	})
	defer coord.ResetTransfer()

	req := StartRequest{SessionIDs: []int64{4, 7}}
	req.Filters.OnlyUnsynced = true
	resp, err := coord.StartTransfer(context.Background(), req)
	if err != nil {
		t.Fatalf("StartTransfer failed: %v", err)
	}
	if resp.TransferID != "t-1" || resp.TotalSessions != 2 {
		t.Fatalf("Unexpected response: %+v", resp)
	}
	if got := coord.TransferID(); got != "t-1" {
		t.Errorf("TransferID() = %q, want t-1", got)
	}

	portal.mu.Lock()
	body := portal.startBody
	portal.mu.Unlock()
	if !strings.Contains(body, `"sessionIds":[4,7]`) || !strings.Contains(body, `"onlyUnsynced":true`) {
		t.Errorf("Request body missing expected fields: %s", body)
	}

	// The socket subscribed to the new transfer and receives its events.
	waitForString(t, portal.subscribed, "t-1")
	portal.publish(t, "mebbis:progress", map[string]int{"total": 2})
	waitForString(t, events, "mebbis:progress")
}

func TestStartTransferRejected(t *testing.T) {
	portal := newFakePortal()
	portal.startResponse = `{"success":false,"error":"At least one session id is required"}`
	server := portal.server(t)

	coord := New(Options{BaseURL: server.URL, Backoff: time.Millisecond})
	if _, err := coord.StartTransfer(context.Background(), StartRequest{}); err == nil {
		t.Fatal("Expected an error for a rejected start")
	}
	if got := coord.TransferID(); got != "" {
		t.Errorf("A rejected start must not leave a transfer id, got %q", got)
	}
}

func TestCancelTransfer(t *testing.T) {
	portal := newFakePortal()
	server := portal.server(t)

	coord := New(Options{BaseURL: server.URL, Backoff: time.Millisecond})
	defer coord.ResetTransfer()

	if err := coord.CancelTransfer(context.Background()); err == nil {
		t.Fatal("Cancel without an active transfer must fail")
	}

	if _, err := coord.StartTransfer(context.Background(), StartRequest{SessionIDs: []int64{1}}); err != nil {
		t.Fatalf("StartTransfer failed: %v", err)
	}
	if err := coord.CancelTransfer(context.Background()); err != nil {
		t.Fatalf("CancelTransfer failed: %v", err)
	}

	portal.mu.Lock()
	defer portal.mu.Unlock()
	if portal.cancelBody != "t-1" {
		t.Errorf("Cancel was sent for %q, want t-1", portal.cancelBody)
	}
}

// A second start replaces the first subscription: the old socket is torn
// down before the new one subscribes.
func TestNewestSubscriptionWins(t *testing.T) {
	portal := newFakePortal()
	server := portal.server(t)

	coord := New(Options{BaseURL: server.URL, Backoff: time.Millisecond})
	defer coord.ResetTransfer()

	if _, err := coord.StartTransfer(context.Background(), StartRequest{SessionIDs: []int64{1}}); err != nil {
		t.Fatalf("First StartTransfer failed: %v", err)
	}
	waitForString(t, portal.subscribed, "t-1")

	portal.mu.Lock()
	portal.startResponse = `{"success":true,"transferId":"t-2","totalSessions":1}`
	portal.mu.Unlock()

	if _, err := coord.StartTransfer(context.Background(), StartRequest{SessionIDs: []int64{2}}); err != nil {
		t.Fatalf("Second StartTransfer failed: %v", err)
	}

	// The first connection drops, then the new subscription arrives.
	select {
	case <-portal.dropped:
	case <-time.After(5 * time.Second):
		t.Fatal("The first socket was never torn down")
	}
	waitForString(t, portal.subscribed, "t-2")
	if got := coord.TransferID(); got != "t-2" {
		t.Errorf("TransferID() = %q, want t-2", got)
	}
}

// ResetTransfer tears the socket down and clears the local state, even
// right after a start.
func TestResetTearsDownSocket(t *testing.T) {
	portal := newFakePortal()
	server := portal.server(t)

	coord := New(Options{BaseURL: server.URL, Backoff: time.Millisecond})
	if _, err := coord.StartTransfer(context.Background(), StartRequest{SessionIDs: []int64{1}}); err != nil {
		t.Fatalf("StartTransfer failed: %v", err)
	}
	waitForString(t, portal.subscribed, "t-1")

	coord.ResetTransfer()
	if got := coord.TransferID(); got != "" {
		t.Errorf("TransferID() = %q after reset, want empty", got)
	}
	select {
	case <-portal.dropped:
	case <-time.After(5 * time.Second):
		t.Fatal("Reset did not tear the socket down")
	}

	// A reset coordinator is reusable.
	coord.ResetTransfer()
}

// A dropped connection is redialed and resubscribed; the server's
// snapshot replay covers the gap.
func TestReconnectAfterDrop(t *testing.T) {
	portal := newFakePortal()
	portal.dropOnce = true
	portal.dropsLeft = 1
	server := portal.server(t)

	states := make(chan ConnState, 16)
	coord := New(Options{
		BaseURL: server.URL,
		OnConn:  func(state ConnState, attempt int) { states <- state },
		Backoff: time.Millisecond,
	})
	defer coord.ResetTransfer()

	if _, err := coord.StartTransfer(context.Background(), StartRequest{SessionIDs: []int64{1}}); err != nil {
		t.Fatalf("StartTransfer failed: %v", err)
	}

	waitForString(t, portal.subscribed, "t-1")
	waitForString(t, portal.subscribed, "t-1") // the resubscribe after the drop

	sawConnected := 0
	deadline := time.After(5 * time.Second)
	for sawConnected < 2 {
		select {
		case s := <-states:
			if s == ConnConnected {
				sawConnected++
			}
		case <-deadline:
			t.Fatalf("Saw only %d connects after the drop", sawConnected)
		}
	}
}

// When the socket endpoint stays unreachable the coordinator gives up
// after the capped retries and surfaces the lost state. The transfer id
// is kept: the server-side job is still running.
func TestReconnectExhaustionSurfacesLost(t *testing.T) {
	portal := newFakePortal()
	portal.refuseSocket = true
	server := portal.server(t)

	type connEvent struct {
		state   ConnState
		attempt int
	}
	states := make(chan connEvent, 16)
	coord := New(Options{
		BaseURL:    server.URL,
		OnConn:     func(state ConnState, attempt int) { states <- connEvent{state, attempt} },
		MaxRetries: 3,
		Backoff:    time.Millisecond,
	})
	defer coord.ResetTransfer()

	if _, err := coord.StartTransfer(context.Background(), StartRequest{SessionIDs: []int64{1}}); err != nil {
		t.Fatalf("StartTransfer failed: %v", err)
	}

	retries := 0
	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-states:
			switch e.state {
			case ConnReconnecting:
				retries++
			case ConnLost:
				if retries != 3 {
					t.Errorf("Gave up after %d retries, want 3", retries)
				}
				if got := coord.TransferID(); got != "t-1" {
					t.Errorf("TransferID() = %q, the job must survive a lost socket", got)
				}
				return
			case ConnConnected:
				t.Fatal("Connected to a refusing endpoint")
			}
		case <-deadline:
			t.Fatalf("Never reached the lost state (%d retries seen)", retries)
		}
	}
}
