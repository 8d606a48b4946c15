package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ItemRecorder is notified after each successfully transferred item so the
// owning record (the counseling session row) can be flagged as synced.
type ItemRecorder interface {
	RecordItemSynced(item Item)
}

// Runner drives one transfer job end to end against a Driver. Items are
// processed strictly sequentially: the external system is a single
// login-gated portal session, so there is nothing to parallelize within
// one job. Multiple jobs may run concurrently, each with its own driver.
type Runner struct {
	registry    *Registry
	emitter     *Emitter
	recorder    ItemRecorder
	authTimeout time.Duration
	itemTimeout time.Duration
}

// NewRunner wires a runner. recorder may be nil.
func NewRunner(registry *Registry, emitter *Emitter, recorder ItemRecorder, authTimeout, itemTimeout time.Duration) *Runner {
	return &Runner{
		registry:    registry,
		emitter:     emitter,
		recorder:    recorder,
		authTimeout: authTimeout,
		itemTimeout: itemTimeout,
	}
}

// Run executes the job created for the given items. It is meant to be
// called on its own goroutine; every exit path leaves the job in a
// terminal status.
func (r *Runner) Run(ctx context.Context, jobID string, items []Item, driver Driver) {
	challenge, err := driver.BeginAuthentication(ctx)
	if err != nil {
		r.emitter.Fatal(jobID, fmt.Errorf("could not start portal login: %w", err))
		return
	}
	r.emitter.AuthChallengeIssued(jobID, challenge)

	if !r.waitForAuth(ctx, jobID, driver) {
		return
	}
	r.emitter.Authenticated(jobID)

	for _, item := range items {
		// Cooperative cancel: checked between items only. An in-flight
		// item is always allowed to finish or fail first.
		if r.registry.CancelRequested(jobID) {
			driver.Cancel()
			r.emitter.Cancelled(jobID)
			return
		}

		r.emitter.ItemStarted(jobID, item)
		r.processItem(ctx, jobID, item, driver)

		if job, err := r.registry.Get(jobID); err != nil || job.Status.Terminal() {
			return
		}
	}

	if r.registry.CancelRequested(jobID) {
		driver.Cancel()
		r.emitter.Cancelled(jobID)
		return
	}
	r.emitter.Completed(jobID)
}

// waitForAuth blocks until the human completes the portal login, the
// policy timeout elapses, or the job is cancelled. It reports whether the
// run may proceed.
func (r *Runner) waitForAuth(ctx context.Context, jobID string, driver Driver) bool {
	authCtx, cancel := context.WithTimeout(ctx, r.authTimeout)
	defer cancel()

	// Let a user cancel interrupt the wait instead of holding the job
	// until the auth timeout fires.
	go func() {
		select {
		case <-r.registry.CancelChan(jobID):
			cancel()
		case <-authCtx.Done():
		}
	}()

	err := driver.WaitForAuthentication(authCtx)

	if r.registry.CancelRequested(jobID) {
		driver.Cancel()
		r.emitter.Cancelled(jobID)
		return false
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.emitter.AuthTimedOut(jobID, &AuthTimeoutError{Timeout: r.authTimeout})
		} else {
			r.emitter.Fatal(jobID, fmt.Errorf("portal login failed: %w", err))
		}
		return false
	}
	return true
}

// processItem submits one item, bounding it with the per-item timeout so a
// hung portal page surfaces as an item failure instead of stalling the
// whole job.
func (r *Runner) processItem(ctx context.Context, jobID string, item Item, driver Driver) {
	itemCtx, cancel := context.WithTimeout(ctx, r.itemTimeout)
	defer cancel()

	result, err := driver.ProcessItem(itemCtx, item)
	if err != nil {
		var fatal *FatalError
		if errors.As(err, &fatal) {
			r.emitter.Fatal(jobID, err)
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = &ItemProcessingError{ItemID: item.ID, Err: fmt.Errorf("timed out after %s", r.itemTimeout)}
		}
		r.emitter.ItemFailed(jobID, item, err)
		return
	}

	r.emitter.ItemCompleted(jobID, item)
	if r.recorder != nil {
		r.recorder.RecordItemSynced(item)
	}
	if result != nil && result.Detail != "" {
		log.Printf("transfer %s: item %s: %s", jobID, item.ID, result.Detail)
	}
}
