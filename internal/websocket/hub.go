// Package websocket bridges transfer jobs and background job status to
// browser clients over a single persistent connection per client. Clients
// subscribe to one transfer job at a time; global broadcasts (background
// job status) reach every connection.
package websocket

import (
	"encoding/json"
	"log"
)

// Envelope is the wire format for every server-to-client frame.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// clientMessage is what clients send: currently only subscribe and
// unsubscribe for a transfer id.
type clientMessage struct {
	Event      string `json:"event"`
	TransferID string `json:"transferId"`
}

// SnapshotProvider supplies the full current state of a job, replayed to a
// connection the moment it subscribes so late subscribers (page reloads)
// are not stuck waiting for the next delta.
type SnapshotProvider interface {
	Snapshot(jobID string) (interface{}, bool)
}

type subscription struct {
	client *Client
	jobID  string
}

type publication struct {
	jobID string
	data  []byte
}

// Hub maintains the set of active clients and routes messages to them.
// All bookkeeping happens on the Run goroutine; no locks needed.
type Hub struct {
	clients     map[*Client]bool
	register    chan *Client
	unregister  chan *Client
	broadcast   chan []byte
	subscribe   chan subscription
	unsubscribe chan subscription
	publishCh   chan publication

	snapshots SnapshotProvider
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan []byte, 16),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		publishCh:   make(chan publication, 64),
	}
}

// SetSnapshotProvider wires the replay source. Must be called before Run.
func (h *Hub) SetSnapshotProvider(p SnapshotProvider) {
	h.snapshots = p
}

// Run processes hub events. It must be started on its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			// A dropped connection never touches job state; the job
			// keeps running and the client resubscribes on reconnect.
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case sub := <-h.subscribe:
			if !h.clients[sub.client] {
				break
			}
			// One active job per connection: a new subscription
			// replaces the previous one.
			sub.client.jobID = sub.jobID
			h.replay(sub.client, sub.jobID)

		case sub := <-h.unsubscribe:
			if h.clients[sub.client] && sub.client.jobID == sub.jobID {
				sub.client.jobID = ""
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				h.send(client, message)
			}

		case pub := <-h.publishCh:
			for client := range h.clients {
				if client.jobID == pub.jobID {
					h.send(client, pub.data)
				}
			}
		}
	}
}

// send delivers best effort: a client whose buffer is full is dropped
// rather than allowed to stall everyone else.
func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		delete(h.clients, client)
		close(client.send)
	}
}

// replay pushes the job's full state to a single freshly subscribed
// connection.
func (h *Hub) replay(client *Client, jobID string) {
	if h.snapshots == nil {
		return
	}
	snap, ok := h.snapshots.Snapshot(jobID)
	if !ok {
		// Unknown transfer id: subscribe is a no-op by design.
		return
	}
	data, err := json.Marshal(Envelope{Event: "mebbis:snapshot", Payload: snap})
	if err != nil {
		log.Printf("websocket: failed to marshal snapshot for %s: %v", jobID, err)
		return
	}
	h.send(client, data)
}

// Publish delivers an event to every connection subscribed to jobID.
// Delivery is at most once per connection, with no redelivery queue; a
// disconnected client catches up via the snapshot replay.
func (h *Hub) Publish(jobID string, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		log.Printf("websocket: failed to marshal %s event: %v", event, err)
		return
	}
	h.publishCh <- publication{jobID: jobID, data: data}
}

// BroadcastJSON sends a payload to every connected client, regardless of
// subscription. Used for background job status updates.
func (h *Hub) BroadcastJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("websocket: failed to marshal broadcast: %v", err)
		return
	}
	h.broadcast <- data
}
