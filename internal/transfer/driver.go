package transfer

import (
	"context"
	"time"
)

// AuthChallenge carries whatever the external portal hands back to gate a
// human login, typically a QR code. The coordinator never interprets the
// payload, it only forwards it to subscribers.
type AuthChallenge struct {
	Type      string    `json:"type"` // e.g. "qr"
	Payload   string    `json:"payload"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ItemResult is the outcome of a single successfully processed item.
type ItemResult struct {
	ItemID string `json:"itemId"`
	Detail string `json:"detail,omitempty"`
}

// Driver is the contract the coordinator depends on to talk to the
// external, human-gated system. Implementations own exactly one portal
// session per job and are never shared between jobs.
//
// ProcessItem may fail independently per item; such failures are recorded
// and the batch continues. A *FatalError aborts the remaining items.
// Cancel is a best-effort abort signal: an in-flight item is allowed to
// finish, but no further items will be submitted afterwards.
type Driver interface {
	BeginAuthentication(ctx context.Context) (*AuthChallenge, error)
	WaitForAuthentication(ctx context.Context) error
	ProcessItem(ctx context.Context, item Item) (*ItemResult, error)
	Cancel()
}
