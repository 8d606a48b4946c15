// Package transfer implements the MEBBIS transfer coordinator: an in-memory
// registry of batch transfer jobs, the status state machine governing them,
// and the runner that drives an external portal session item by item while
// streaming progress to websocket subscribers.
package transfer

import "time"

// Status is the lifecycle state of a transfer job.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusConnecting  Status = "connecting"
	StatusWaitingAuth Status = "waiting_authentication"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether no further processing events are accepted
// in this status. Only a reset is legal from a terminal status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Event is a state machine input.
type Event string

const (
	EventStart         Event = "start"
	EventAuthChallenge Event = "auth-challenge-issued"
	EventAuthenticated Event = "authenticated"
	EventAuthTimeout   Event = "auth-timeout"
	EventItemsDone     Event = "items-exhausted"
	EventDriverError   Event = "driver-fatal-error"
	EventCancel        Event = "user-cancel"
	EventReset         Event = "reset"
)

// Item is one unit of work within a job, typically one counseling session
// record to submit to the portal.
type Item struct {
	ID          string `json:"id"`
	SessionID   int64  `json:"session_id"`
	StudentName string `json:"student_name"`
	Topic       string `json:"topic"`
}

// ItemError records a single failed item. The slice of these on a job is
// append-only.
type ItemError struct {
	ItemID  string `json:"itemId"`
	Message string `json:"message"`
}

// Progress tracks per-job counters. Total is fixed at creation; the other
// three only ever grow until the job reaches a terminal status.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Current   int `json:"current"`
}

// Job is one batch transfer request over a fixed set of items. Jobs are
// owned exclusively by the Registry; everything outside the registry works
// with copies or snapshots.
type Job struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Items       []Item     `json:"items"`
	Progress    Progress   `json:"progress"`
	Errors      []ItemError `json:"errors"`
	CurrentItem *Item      `json:"current_item,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	cancelRequested bool
	cancelCh        chan struct{}
}

// Snapshot is the full state of a job as replayed to late subscribers and
// served on the job status endpoint.
type Snapshot struct {
	TransferID  string      `json:"transferId"`
	Status      Status      `json:"status"`
	Progress    Progress    `json:"progress"`
	Errors      []ItemError `json:"errors"`
	CurrentItem *Item       `json:"current_item,omitempty"`
}

// Summary reports final success/failure counts, sent with the
// transfer-completed event.
type Summary struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}
