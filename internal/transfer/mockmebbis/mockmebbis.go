// A mock transfer driver for development and testing purposes. It simulates
// the MEBBIS QR login and per-session submission without making network
// calls.
package mockmebbis

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rehberapp/rehber-go/internal/transfer"
)

type Driver struct {
	// AuthDelay simulates how long the human takes to scan the QR code.
	AuthDelay time.Duration
	// ItemDelay simulates the portal round trip per session record.
	ItemDelay time.Duration
	// FailItems maps item ids to the error message the portal rejects
	// them with.
	FailItems map[string]string

	cancelled atomic.Bool
}

func New() *Driver {
	return &Driver{}
}

func (d *Driver) BeginAuthentication(ctx context.Context) (*transfer.AuthChallenge, error) {
	return &transfer.AuthChallenge{
		Type:      "qr",
		Payload:   "data:image/png;base64,bW9jay1tZWJiaXMtcXI=",
		ExpiresAt: time.Now().Add(3 * time.Minute),
	}, nil
}

func (d *Driver) WaitForAuthentication(ctx context.Context) error {
	if d.AuthDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(d.AuthDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) ProcessItem(ctx context.Context, item transfer.Item) (*transfer.ItemResult, error) {
	if d.ItemDelay > 0 {
		select {
		case <-time.After(d.ItemDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if msg, ok := d.FailItems[item.ID]; ok {
		return nil, fmt.Errorf("%s", msg)
	}
	return &transfer.ItemResult{
		ItemID: item.ID,
		Detail: fmt.Sprintf("session %d submitted", item.SessionID),
	}, nil
}

func (d *Driver) Cancel() {
	d.cancelled.Store(true)
}

// Cancelled reports whether Cancel was signalled, for test assertions.
func (d *Driver) Cancelled() bool {
	return d.cancelled.Load()
}
