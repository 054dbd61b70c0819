package payments

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/markethub/storefront-gateway/pkg/auth"
	"github.com/markethub/storefront-gateway/pkg/enums"
	"github.com/shopspring/decimal"
)

// Snapshot is a point-in-time copy of one payment attempt.
type Snapshot struct {
	AttemptID         string                     `json:"attempt_id"`
	OrderID           int64                      `json:"order_id"`
	OwnerID           string                     `json:"-"`
	Amount            decimal.Decimal            `json:"amount"`
	Phone             string                     `json:"phone_number"`
	CheckoutRequestID string                     `json:"checkout_request_id,omitempty"`
	Status            enums.PaymentAttemptStatus `json:"status"`
	FailureReason     enums.PaymentFailureReason `json:"failure_reason,omitempty"`
	Message           string                     `json:"message,omitempty"`
	Polls             int                        `json:"polls"`
	StartedAt         time.Time                  `json:"started_at"`
	FinishedAt        *time.Time                 `json:"finished_at,omitempty"`
	Redirect          string                     `json:"redirect,omitempty"`
}

// SuccessFunc runs once, after the grace delay, when an attempt succeeds.
type SuccessFunc func(ctx context.Context, snap Snapshot) error

type attempt struct {
	mu   sync.Mutex
	snap Snapshot

	actor     auth.Actor
	onSuccess SuccessFunc

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// expiry forgets a finished attempt once its retention elapses.
	expiry clockwork.Timer
}

func (a *attempt) snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}

// transition moves the attempt from one status to another. It is the only writer of
// Status, so the first terminal transition wins and later ones are no-ops.
func (a *attempt) transition(from, to enums.PaymentAttemptStatus, mutate func(*Snapshot)) (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.snap.Status != from {
		return a.snap, false
	}
	a.snap.Status = to
	if mutate != nil {
		mutate(&a.snap)
	}
	return a.snap, true
}

func (a *attempt) update(mutate func(*Snapshot)) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	mutate(&a.snap)
	return a.snap
}

// stop cancels the attempt and waits until nothing it owns is still running.
func (a *attempt) stop() {
	a.cancel()
	<-a.done
}

func (a *attempt) setExpiry(timer clockwork.Timer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expiry = timer
}

func (a *attempt) stopExpiry() {
	a.mu.Lock()
	timer := a.expiry
	a.expiry = nil
	a.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}
