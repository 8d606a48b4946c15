package transfer

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the authoritative, in-memory store of transfer jobs. Job
// state is intentionally non-durable: a process restart loses in-flight
// jobs, which is an accepted limitation of the design.
//
// All mutation goes through registry methods under one mutex; from the
// perspective of any single job there is only ever one writer, because
// item processing within a job is strictly sequential.
type Registry struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	retention time.Duration
}

// NewRegistry creates a registry. Terminal jobs are kept for the given
// retention window so late subscribers and page reloads can still fetch
// the final state, then evicted by the periodic sweep.
func NewRegistry(retention time.Duration) *Registry {
	return &Registry{
		jobs:      make(map[string]*Job),
		retention: retention,
	}
}

// CreateJob allocates a new job covering the given items. The job starts
// in "connecting" with all counters at zero. It fails on an empty batch.
func (r *Registry) CreateJob(items []Item) (*Job, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	job := &Job{
		ID:        uuid.NewString(),
		Status:    StatusConnecting,
		Items:     items,
		Progress:  Progress{Total: len(items)},
		CreatedAt: time.Now(),
		cancelCh:  make(chan struct{}),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return copyJob(job), nil
}

// Get returns a copy of the job, or ErrNotFound.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyJob(job), nil
}

// ApplyTransition is the sole writer of a job's status. Illegal events are
// logged and reported via ErrIllegalTransition; callers ignore them and
// continue, since stale events from a slow consumer must not corrupt state.
func (r *Registry) ApplyTransition(id string, event Event) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	next, err := nextStatus(job.Status, event)
	if err != nil {
		log.Printf("transfer %s: ignoring event %q in status %q", id, event, job.Status)
		return copyJob(job), err
	}

	job.Status = next
	if next.Terminal() && job.CompletedAt == nil {
		now := time.Now()
		job.CompletedAt = &now
	}
	if next.Terminal() {
		job.CurrentItem = nil
	}
	return copyJob(job), nil
}

// ItemStarted marks the item as currently being processed.
func (r *Registry) ItemStarted(id string, item Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	it := item
	job.CurrentItem = &it
	return nil
}

// ItemSucceeded advances the completed and current counters and clears
// the current item.
func (r *Registry) ItemSucceeded(id string) (Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return Progress{}, ErrNotFound
	}
	job.Progress.Completed++
	job.Progress.Current++
	job.CurrentItem = nil
	return job.Progress, nil
}

// ItemFailed appends to the job's error list and advances the failed and
// current counters. A failed item never changes the job's status.
func (r *Registry) ItemFailed(id string, itemID, message string) (Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return Progress{}, ErrNotFound
	}
	job.Errors = append(job.Errors, ItemError{ItemID: itemID, Message: message})
	job.Progress.Failed++
	job.Progress.Current++
	job.CurrentItem = nil
	return job.Progress, nil
}

// RequestCancel flags the job for cooperative cancellation. It reports
// whether this call newly requested the cancel, so repeated cancels stay
// idempotent. Cancelling an already-terminal job is a no-op.
func (r *Registry) RequestCancel(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	if job.Status.Terminal() || job.cancelRequested {
		return false, nil
	}
	job.cancelRequested = true
	close(job.cancelCh)
	return true, nil
}

// CancelRequested reports whether a cancel has been requested for the job.
func (r *Registry) CancelRequested(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	return ok && job.cancelRequested
}

// CancelChan returns a channel closed when the job's cancel is requested.
// Unknown ids get a channel that never closes.
func (r *Registry) CancelChan(id string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return make(chan struct{})
	}
	return job.cancelCh
}

// Snapshot returns the job's full current state for replay to late
// subscribers.
func (r *Registry) Snapshot(id string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	snap := &Snapshot{
		TransferID: job.ID,
		Status:     job.Status,
		Progress:   job.Progress,
		Errors:     append([]ItemError(nil), job.Errors...),
	}
	if job.CurrentItem != nil {
		it := *job.CurrentItem
		snap.CurrentItem = &it
	}
	return snap, nil
}

// SweepExpired evicts terminal jobs past the retention window and returns
// how many were removed. It is scheduled periodically, never per request.
func (r *Registry) SweepExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	cutoff := time.Now().Add(-r.retention)
	for id, job := range r.jobs {
		if job.Status.Terminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of jobs currently held.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func copyJob(job *Job) *Job {
	c := *job
	c.Items = append([]Item(nil), job.Items...)
	c.Errors = append([]ItemError(nil), job.Errors...)
	if job.CurrentItem != nil {
		it := *job.CurrentItem
		c.CurrentItem = &it
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
