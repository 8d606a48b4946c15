// Package transferclient drives a MEBBIS transfer from the consuming
// side: it issues the start/cancel REST calls and follows progress over
// the websocket channel. It owns exactly one socket subscription at a
// time; starting a new transfer or resetting always tears the previous
// socket down first.
package transferclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnState is the user-visible connectivity of the progress socket. It
// never reflects job state: a lost connection leaves the server-side job
// running.
type ConnState string

const (
	ConnConnected    ConnState = "connected"
	ConnReconnecting ConnState = "reconnecting"
	ConnLost         ConnState = "lost"
)

const (
	defaultMaxRetries = 5
	defaultBackoff    = 2 * time.Second
)

// Envelope mirrors the server's websocket frame.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// EventHandler receives every frame published for the subscribed
// transfer, in arrival order.
type EventHandler func(event string, payload json.RawMessage)

// ConnHandler receives connectivity changes. attempt is the reconnect
// attempt number, zero when connected.
type ConnHandler func(state ConnState, attempt int)

// StartRequest selects the counseling sessions to transfer.
type StartRequest struct {
	SessionIDs []int64 `json:"sessionIds"`
	Filters    struct {
		OnlyUnsynced bool `json:"onlyUnsynced"`
	} `json:"filters"`
}

// StartResponse is the server's acknowledgement of a new transfer.
type StartResponse struct {
	Success       bool   `json:"success"`
	TransferID    string `json:"transferId"`
	TotalSessions int    `json:"totalSessions"`
	Error         string `json:"error"`
}

// Options configures a Coordinator. BaseURL is required; everything else
// has a usable default.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	OnEvent    EventHandler
	OnConn     ConnHandler
	MaxRetries int
	Backoff    time.Duration
}

// Coordinator is safe for use from multiple goroutines, but transfers
// are started and reset one at a time: a new start replaces the previous
// subscription.
type Coordinator struct {
	baseURL    string
	httpClient *http.Client
	onEvent    EventHandler
	onConn     ConnHandler
	maxRetries int
	backoff    time.Duration
	dialer     *websocket.Dialer

	mu         sync.Mutex
	transferID string
	stopSocket context.CancelFunc
	socketDone chan struct{}
}

func New(opts Options) *Coordinator {
	c := &Coordinator{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		onEvent:    opts.OnEvent,
		onConn:     opts.OnConn,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.maxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.backoff == 0 {
		c.backoff = defaultBackoff
	}
	c.dialer.Jar = c.httpClient.Jar
	return c
}

// TransferID returns the id of the active transfer, or "".
func (c *Coordinator) TransferID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transferID
}

// StartTransfer submits the request and, on success, subscribes the
// progress socket to the new transfer. Any previous subscription is torn
// down first.
func (c *Coordinator) StartTransfer(ctx context.Context, req StartRequest) (*StartResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/mebbis/start-transfer", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("start-transfer request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp StartResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("start-transfer: malformed response: %w", err)
	}
	if !resp.Success || resp.TransferID == "" {
		if resp.Error != "" {
			return nil, fmt.Errorf("start-transfer rejected: %s", resp.Error)
		}
		return nil, fmt.Errorf("start-transfer rejected: status %d", httpResp.StatusCode)
	}

	c.subscribe(resp.TransferID)
	return &resp, nil
}

// CancelTransfer requests cooperative cancellation of the active
// transfer. The job winds down server side; the final status arrives
// over the socket.
func (c *Coordinator) CancelTransfer(ctx context.Context) error {
	id := c.TransferID()
	if id == "" {
		return fmt.Errorf("no active transfer to cancel")
	}

	body, _ := json.Marshal(map[string]string{"transferId": id})
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/mebbis/cancel-transfer", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("cancel-transfer request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return fmt.Errorf("cancel-transfer: malformed response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("cancel-transfer rejected: %s", resp.Error)
	}
	return nil
}

// ResetTransfer tears the socket down, then clears the local transfer
// state. The teardown always happens, whatever state the socket is in.
func (c *Coordinator) ResetTransfer() {
	c.mu.Lock()
	stop, done := c.stopSocket, c.socketDone
	c.stopSocket, c.socketDone = nil, nil
	c.transferID = ""
	c.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// subscribe replaces the active subscription with one for transferID.
func (c *Coordinator) subscribe(transferID string) {
	c.mu.Lock()
	stop, done := c.stopSocket, c.socketDone
	c.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketDone := make(chan struct{})

	c.mu.Lock()
	c.transferID = transferID
	c.stopSocket = cancel
	c.socketDone = socketDone
	c.mu.Unlock()

	go c.runSocket(ctx, transferID, socketDone)
}

// wsURL rewrites the base URL scheme for the websocket endpoint.
func (c *Coordinator) wsURL() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + "/ws/progress"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws/progress"
	return u.String()
}

// runSocket maintains the subscription until ctx is cancelled. Dropped
// connections are redialed with a growing backoff and a capped attempt
// count; the snapshot replay on resubscribe covers whatever was missed.
// Exhausting the retries surfaces ConnLost and gives up without touching
// the server-side job.
func (c *Coordinator) runSocket(ctx context.Context, transferID string, done chan struct{}) {
	defer close(done)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := c.dialer.DialContext(ctx, c.wsURL(), nil)
		if err != nil {
			attempt++
			if attempt > c.maxRetries {
				c.notifyConn(ConnLost, attempt-1)
				return
			}
			c.notifyConn(ConnReconnecting, attempt)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
			continue
		}

		attempt = 0
		c.notifyConn(ConnConnected, 0)

		if err := conn.WriteJSON(map[string]string{
			"event":      "mebbis:subscribe",
			"transferId": transferID,
		}); err != nil {
			conn.Close()
			continue
		}

		c.readFrames(ctx, conn)
		conn.Close()
	}
}

// readFrames dispatches envelopes until the connection drops or ctx is
// cancelled.
func (c *Coordinator) readFrames(ctx context.Context, conn *websocket.Conn) {
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readDone:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			continue
		}
		if c.onEvent != nil {
			c.onEvent(env.Event, env.Payload)
		}
	}
}

func (c *Coordinator) notifyConn(state ConnState, attempt int) {
	if c.onConn != nil {
		c.onConn(state, attempt)
	}
}
