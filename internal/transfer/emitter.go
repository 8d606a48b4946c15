package transfer

import (
	"errors"
	"log"
)

// Websocket event names for transfer subscribers. The payload shapes are
// part of the client contract.
const (
	MsgProgress          = "mebbis:progress"
	MsgStatus            = "mebbis:status"
	MsgAuthChallenge     = "mebbis:auth-challenge"
	MsgSessionStart      = "mebbis:session-start"
	MsgSessionCompleted  = "mebbis:session-completed"
	MsgSessionFailed     = "mebbis:session-failed"
	MsgTransferCompleted = "mebbis:transfer-completed"
	MsgTransferError     = "mebbis:transfer-error"
)

// Publisher fans an event out to every subscriber of a job id. Delivery is
// best effort, at most once per connection; a disconnected client catches
// up via the snapshot replay when it resubscribes.
type Publisher interface {
	Publish(jobID string, event string, payload interface{})
}

// Emitter translates driver callbacks into registry mutations and
// subscriber notifications. It is the sole writer into a job's progress,
// errors and status, and events for one job are always emitted in the
// order the items were processed.
type Emitter struct {
	registry *Registry
	pub      Publisher
}

func NewEmitter(registry *Registry, pub Publisher) *Emitter {
	return &Emitter{registry: registry, pub: pub}
}

// statusMessage is the payload of MsgStatus events.
type statusMessage struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// itemOutcome is the payload of MsgSessionCompleted / MsgSessionFailed.
type itemOutcome struct {
	ItemID  string `json:"itemId"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (e *Emitter) transition(jobID string, event Event, message string) bool {
	job, err := e.registry.ApplyTransition(jobID, event)
	if err != nil {
		if !errors.Is(err, ErrIllegalTransition) {
			log.Printf("transfer %s: transition %q failed: %v", jobID, event, err)
		}
		return false
	}
	e.pub.Publish(jobID, MsgStatus, statusMessage{Status: job.Status, Message: message})
	return true
}

// AuthChallengeIssued moves the job to waiting_authentication and forwards
// the challenge payload untouched.
func (e *Emitter) AuthChallengeIssued(jobID string, challenge *AuthChallenge) {
	if e.transition(jobID, EventAuthChallenge, "Waiting for MEBBIS authentication") {
		e.pub.Publish(jobID, MsgAuthChallenge, challenge)
	}
}

// Authenticated moves the job to running and publishes the initial
// progress counters.
func (e *Emitter) Authenticated(jobID string) {
	if e.transition(jobID, EventAuthenticated, "Authenticated, starting transfer") {
		if job, err := e.registry.Get(jobID); err == nil {
			e.pub.Publish(jobID, MsgProgress, job.Progress)
		}
	}
}

// AuthTimedOut marks the job failed because the login was never completed.
func (e *Emitter) AuthTimedOut(jobID string, err error) {
	if e.transition(jobID, EventAuthTimeout, err.Error()) {
		e.pub.Publish(jobID, MsgTransferError, map[string]string{"error": err.Error()})
	}
}

// ItemStarted records the in-flight item and notifies subscribers.
func (e *Emitter) ItemStarted(jobID string, item Item) {
	if err := e.registry.ItemStarted(jobID, item); err != nil {
		log.Printf("transfer %s: item start not recorded: %v", jobID, err)
		return
	}
	e.pub.Publish(jobID, MsgSessionStart, item)
}

// ItemCompleted records a successful item and publishes the outcome plus
// updated counters.
func (e *Emitter) ItemCompleted(jobID string, item Item) {
	progress, err := e.registry.ItemSucceeded(jobID)
	if err != nil {
		log.Printf("transfer %s: item success not recorded: %v", jobID, err)
		return
	}
	e.pub.Publish(jobID, MsgSessionCompleted, itemOutcome{ItemID: item.ID, Success: true})
	e.pub.Publish(jobID, MsgProgress, progress)
}

// ItemFailed records a failed item. Per-item failures never move the job
// away from running; the batch continues.
func (e *Emitter) ItemFailed(jobID string, item Item, itemErr error) {
	progress, err := e.registry.ItemFailed(jobID, item.ID, itemErr.Error())
	if err != nil {
		log.Printf("transfer %s: item failure not recorded: %v", jobID, err)
		return
	}
	e.pub.Publish(jobID, MsgSessionFailed, itemOutcome{ItemID: item.ID, Error: itemErr.Error()})
	e.pub.Publish(jobID, MsgProgress, progress)
}

// Completed marks the batch exhausted and publishes the final summary.
func (e *Emitter) Completed(jobID string) {
	if !e.transition(jobID, EventItemsDone, "Transfer completed") {
		return
	}
	job, err := e.registry.Get(jobID)
	if err != nil {
		return
	}
	e.pub.Publish(jobID, MsgTransferCompleted, Summary{
		Successful: job.Progress.Completed,
		Failed:     job.Progress.Failed,
	})
}

// Fatal aborts the job after an unrecoverable driver error.
func (e *Emitter) Fatal(jobID string, err error) {
	if e.transition(jobID, EventDriverError, err.Error()) {
		e.pub.Publish(jobID, MsgTransferError, map[string]string{"error": err.Error()})
	}
}

// Cancelled finalizes a cooperative cancel.
func (e *Emitter) Cancelled(jobID string) {
	e.transition(jobID, EventCancel, "Transfer cancelled by user")
}
