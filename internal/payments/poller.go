package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/markethub/storefront-gateway/pkg/auth"
	"github.com/markethub/storefront-gateway/pkg/config"
	"github.com/markethub/storefront-gateway/pkg/enums"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/events"
	"github.com/markethub/storefront-gateway/pkg/logger"
	"github.com/markethub/storefront-gateway/pkg/marketplace"
	"github.com/markethub/storefront-gateway/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Gateway is the mobile-money surface of the marketplace API.
type Gateway interface {
	StartSTKPush(ctx context.Context, orderID int64, phone string) (*marketplace.STKPushResult, error)
	PaymentStatus(ctx context.Context, orderID int64) (*marketplace.PaymentStatusResult, error)
}

// StartInput describes a new payment attempt.
type StartInput struct {
	OrderID   int64
	Amount    decimal.Decimal
	Phone     string
	Actor     auth.Actor
	OnSuccess SuccessFunc
}

var errPollerClosed = errors.New("payment poller is shut down")

// DefaultRetention applies when PaymentConfig leaves Retention unset.
const DefaultRetention = 15 * time.Minute

// Poller runs at most one STK push attempt per order and drives it to a terminal outcome.
type Poller struct {
	gateway Gateway
	cfg     config.PaymentConfig
	clock   clockwork.Clock
	logg    *logger.Logger
	metrics *metrics.PaymentMetrics
	events  events.Publisher

	mu       sync.Mutex
	attempts map[int64]*attempt
	closed   bool
	loops    atomic.Int32
}

// Option configures optional poller collaborators.
type Option func(*Poller)

func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(p *Poller) { p.logg = logg }
}

func WithMetrics(m *metrics.PaymentMetrics) Option {
	return func(p *Poller) { p.metrics = m }
}

func WithPublisher(pub events.Publisher) Option {
	return func(p *Poller) {
		if pub != nil {
			p.events = pub
		}
	}
}

// NewPoller builds a poller with the configured cadence.
func NewPoller(gateway Gateway, cfg config.PaymentConfig, opts ...Option) (*Poller, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if cfg.PollInterval <= 0 || cfg.Timeout <= 0 || cfg.SuccessGrace < 0 || cfg.Retention < 0 {
		return nil, fmt.Errorf("invalid payment timings: interval=%s timeout=%s grace=%s retention=%s", cfg.PollInterval, cfg.Timeout, cfg.SuccessGrace, cfg.Retention)
	}
	if cfg.Retention == 0 {
		cfg.Retention = DefaultRetention
	}
	p := &Poller{
		gateway:  gateway,
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		events:   events.NoopPublisher{},
		attempts: make(map[int64]*attempt),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Start opens a new attempt for an order, replacing any attempt already running for it.
// A synchronous push rejection is not an error: the returned snapshot is failed and carries
// the server message.
func (p *Poller) Start(ctx context.Context, in StartInput) (Snapshot, error) {
	if in.OrderID <= 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !in.Amount.IsPositive() {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return Snapshot{}, err
	}

	// The attempt outlives the request that started it but keeps its values (token, log fields).
	attemptCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a := &attempt{
		snap: Snapshot{
			AttemptID: uuid.NewString(),
			OrderID:   in.OrderID,
			OwnerID:   in.Actor.UserID,
			Amount:    in.Amount,
			Phone:     phone,
			Status:    enums.PaymentAttemptIdle,
			StartedAt: p.clock.Now().UTC(),
		},
		actor:     in.Actor,
		onSuccess: in.OnSuccess,
		ctx:       attemptCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, errPollerClosed, "payments unavailable")
	}
	previous := p.attempts[in.OrderID]
	p.attempts[in.OrderID] = a
	p.mu.Unlock()

	if previous != nil {
		p.teardown(previous, "superseded")
	}

	logCtx := p.attemptLogContext(attemptCtx, a)
	result, err := p.gateway.StartSTKPush(attemptCtx, in.OrderID, phone)
	if attemptCtx.Err() != nil {
		// Closed or superseded while the push was in flight.
		close(a.done)
		return a.snapshot(), pkgerrors.New(pkgerrors.CodeConflict, "payment attempt was closed before the push completed")
	}
	if err != nil {
		reason, message := classifyPushError(err)
		snap, _ := a.transition(enums.PaymentAttemptIdle, enums.PaymentAttemptFailed, func(s *Snapshot) {
			s.FailureReason = reason
			s.Message = message
			s.FinishedAt = p.now()
		})
		p.retain(a)
		close(a.done)
		p.metrics.PushRejected()
		p.warn(logCtx, "payment.attempt.rejected", err)
		p.publishOutcome(attemptCtx, a, snap)
		return snap, nil
	}

	snap, _ := a.transition(enums.PaymentAttemptIdle, enums.PaymentAttemptPending, func(s *Snapshot) {
		s.CheckoutRequestID = result.CheckoutRequestID
		s.Message = result.Message
	})
	p.metrics.AttemptStarted()
	p.info(p.withField(logCtx, "checkout_request_id", result.CheckoutRequestID), "payment.attempt.started")

	p.loops.Add(1)
	go p.run(a)
	return snap, nil
}

// Get returns the current attempt for an order. Closed and expired attempts are gone, which
// reads as idle.
func (p *Poller) Get(orderID int64) (Snapshot, bool) {
	p.mu.Lock()
	a, ok := p.attempts[orderID]
	p.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return a.snapshot(), true
}

// Close stops the attempt for an order and forgets it. It returns once no timer or callback
// belonging to the attempt can still run.
func (p *Poller) Close(orderID int64) {
	p.mu.Lock()
	a, ok := p.attempts[orderID]
	if ok {
		delete(p.attempts, orderID)
	}
	p.mu.Unlock()
	if ok {
		p.teardown(a, "closed")
	}
}

// Active reports how many poll loops are running.
func (p *Poller) Active() int {
	return int(p.loops.Load())
}

// Shutdown closes every attempt and refuses new ones.
func (p *Poller) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	pending := make([]*attempt, 0, len(p.attempts))
	for id, a := range p.attempts {
		pending = append(pending, a)
		delete(p.attempts, id)
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, a := range pending {
		wg.Add(1)
		go func(a *attempt) {
			defer wg.Done()
			p.teardown(a, "shutdown")
		}(a)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) teardown(a *attempt, why string) {
	a.stop()
	a.stopExpiry()
	if snap := a.snapshot(); snap.Status == enums.PaymentAttemptPending {
		p.metrics.AttemptFinished("closed", why, p.clock.Since(snap.StartedAt))
		p.info(p.withField(p.attemptLogContext(a.ctx, a), "reason", why), "payment.attempt.closed")
	}
}

// run owns both timers of a pending attempt. Exiting the loop stops both.
func (p *Poller) run(a *attempt) {
	// done closes last so a stopped attempt is never counted as a live loop.
	defer close(a.done)
	defer p.loops.Add(-1)

	ctx := a.ctx
	started := a.snapshot().StartedAt
	remaining := p.cfg.Timeout - p.clock.Since(started)
	if remaining < 0 {
		remaining = 0
	}

	ticker := p.clock.NewTicker(p.cfg.PollInterval)
	deadline := p.clock.NewTimer(remaining)
	stopTimers := func() {
		ticker.Stop()
		deadline.Stop()
	}
	defer stopTimers()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.Chan():
			p.expire(a)
			return
		case <-ticker.Chan():
			// Ticker and deadline can fire together; the bound is absolute, so time wins.
			if p.clock.Since(started) >= p.cfg.Timeout {
				p.expire(a)
				return
			}
			status, ok := p.poll(ctx, a)
			if ctx.Err() != nil {
				return
			}
			if !ok {
				continue
			}
			if p.clock.Since(started) >= p.cfg.Timeout {
				p.expire(a)
				return
			}
			switch {
			case status == enums.GatewayPaymentCompleted:
				stopTimers()
				p.succeed(ctx, a)
				return
			case status.IsFailure():
				p.fail(a, enums.PaymentFailureGatewayFailed, failureMessage(status))
				return
			}
		}
	}
}

// poll performs one status check. Transport and decoding failures are swallowed.
func (p *Poller) poll(ctx context.Context, a *attempt) (enums.GatewayPaymentStatus, bool) {
	snap := a.update(func(s *Snapshot) { s.Polls++ })

	pollCtx, cancel := context.WithTimeout(ctx, p.cfg.PollInterval)
	defer cancel()
	result, err := p.gateway.PaymentStatus(pollCtx, snap.OrderID)
	if err != nil {
		if ctx.Err() == nil {
			p.metrics.PollError()
			p.warn(p.withField(p.attemptLogContext(ctx, a), "poll", snap.Polls), "payment.poll.error", err)
		}
		return "", false
	}
	return result.Status, true
}

func (p *Poller) succeed(ctx context.Context, a *attempt) {
	snap, ok := a.transition(enums.PaymentAttemptPending, enums.PaymentAttemptSuccess, func(s *Snapshot) {
		s.Message = "Payment received"
		s.FinishedAt = p.now()
	})
	if !ok {
		return
	}
	p.metrics.AttemptFinished(string(enums.PaymentAttemptSuccess), "", p.clock.Since(snap.StartedAt))
	logCtx := p.attemptLogContext(ctx, a)
	p.info(logCtx, "payment.attempt.succeeded")
	p.publishOutcome(ctx, a, snap)

	if p.cfg.SuccessGrace > 0 {
		grace := p.clock.NewTimer(p.cfg.SuccessGrace)
		select {
		case <-ctx.Done():
			grace.Stop()
			return
		case <-grace.Chan():
		}
	}

	redirect := "/orders/" + strconv.FormatInt(snap.OrderID, 10)
	if a.onSuccess != nil {
		// Cart clearing must finish even if the attempt is closed meanwhile.
		if err := a.onSuccess(context.WithoutCancel(ctx), snap); err != nil {
			p.errorf(logCtx, "payment.callback.failed", err)
		}
	}
	a.update(func(s *Snapshot) { s.Redirect = redirect })
	p.retain(a)
}

func (p *Poller) expire(a *attempt) {
	p.fail(a, enums.PaymentFailureTimeout, "Payment timed out. Please try again.")
}

func (p *Poller) fail(a *attempt, reason enums.PaymentFailureReason, message string) {
	snap, ok := a.transition(enums.PaymentAttemptPending, enums.PaymentAttemptFailed, func(s *Snapshot) {
		s.FailureReason = reason
		s.Message = message
		s.FinishedAt = p.now()
	})
	if !ok {
		return
	}
	p.metrics.AttemptFinished(string(enums.PaymentAttemptFailed), string(reason), p.clock.Since(snap.StartedAt))
	logCtx := p.attemptLogContext(a.ctx, a)
	if reason == enums.PaymentFailureTimeout {
		p.info(logCtx, "payment.attempt.timeout")
	} else {
		p.info(p.withField(logCtx, "failure_reason", string(reason)), "payment.attempt.failed")
	}
	p.publishOutcome(a.ctx, a, snap)
	p.retain(a)
}

// retain keeps a finished attempt readable for the retention period, then forgets it.
func (p *Poller) retain(a *attempt) {
	orderID := a.snapshot().OrderID
	a.setExpiry(p.clock.AfterFunc(p.cfg.Retention, func() { p.forget(orderID, a) }))
}

// forget drops the attempt unless a newer one has replaced it.
func (p *Poller) forget(orderID int64, a *attempt) {
	p.mu.Lock()
	current := p.attempts[orderID] == a
	if current {
		delete(p.attempts, orderID)
	}
	p.mu.Unlock()
	if current {
		p.metrics.AttemptExpired()
		p.info(p.attemptLogContext(a.ctx, a), "payment.attempt.expired")
	}
}

func (p *Poller) publishOutcome(ctx context.Context, a *attempt, snap Snapshot) {
	evtType := events.TypePaymentFailed
	if snap.Status == enums.PaymentAttemptSuccess {
		evtType = events.TypePaymentSucceeded
	}
	err := p.events.Publish(ctx, events.Event{
		Type:  evtType,
		Key:   events.OrderKey(snap.OrderID),
		Actor: &events.ActorRef{UserID: a.actor.UserID, Role: a.actor.Role.String()},
		Data: events.PaymentOutcome{
			OrderID:           snap.OrderID,
			AttemptID:         snap.AttemptID,
			CheckoutRequestID: snap.CheckoutRequestID,
			Amount:            snap.Amount,
			Reason:            string(snap.FailureReason),
			Message:           snap.Message,
		},
	})
	if err != nil {
		p.warn(p.attemptLogContext(ctx, a), "payment.event.publish_failed", err)
	}
}

func classifyPushError(err error) (enums.PaymentFailureReason, string) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return enums.PaymentFailureGatewayFailed, "Failed to initiate payment"
	}
	switch typed.Code() {
	case pkgerrors.CodeDependency, pkgerrors.CodeInternal:
		return enums.PaymentFailureGatewayFailed, "Failed to initiate payment"
	default:
		return enums.PaymentFailureRejected, typed.Message()
	}
}

func failureMessage(status enums.GatewayPaymentStatus) string {
	if status == enums.GatewayPaymentCancelled {
		return "Payment was cancelled"
	}
	return "Payment failed"
}

func (p *Poller) now() *time.Time {
	now := p.clock.Now().UTC()
	return &now
}

func (p *Poller) attemptLogContext(ctx context.Context, a *attempt) context.Context {
	if p.logg == nil {
		return ctx
	}
	snap := a.snapshot()
	ctx = p.logg.WithOrderID(ctx, strconv.FormatInt(snap.OrderID, 10))
	return p.logg.WithField(ctx, "attempt_id", snap.AttemptID)
}

func (p *Poller) withField(ctx context.Context, key string, value any) context.Context {
	if p.logg == nil {
		return ctx
	}
	return p.logg.WithField(ctx, key, value)
}

func (p *Poller) info(ctx context.Context, msg string) {
	if p.logg != nil {
		p.logg.Info(ctx, msg)
	}
}

func (p *Poller) warn(ctx context.Context, msg string, err error) {
	if p.logg != nil {
		p.logg.WarnErr(ctx, msg, err)
	}
}

func (p *Poller) errorf(ctx context.Context, msg string, err error) {
	if p.logg != nil {
		p.logg.Error(ctx, msg, err)
	}
}
