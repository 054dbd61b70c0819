package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/markethub/storefront-gateway/internal/cart"
	"github.com/markethub/storefront-gateway/internal/payments"
	"github.com/markethub/storefront-gateway/pkg/auth"
	"github.com/markethub/storefront-gateway/pkg/config"
	"github.com/markethub/storefront-gateway/pkg/enums"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/events"
	"github.com/markethub/storefront-gateway/pkg/marketplace"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentTimings = config.PaymentConfig{
	PollInterval: 3 * time.Second,
	Timeout:      120 * time.Second,
	SuccessGrace: 2 * time.Second,
}

var shopper = auth.Actor{UserID: "7", Role: enums.UserRoleCustomer}

// fakeMarketplace serves both the checkout and payment surfaces of the marketplace API.
type fakeMarketplace struct {
	mu sync.Mutex

	cart     *marketplace.Cart
	order    *marketplace.Order
	orderErr error
	pushErr  error
	statuses []enums.GatewayPaymentStatus

	created   []marketplace.CreateOrderRequest
	pushes    []string
	clears    int
	polls     int
	polled    chan struct{}
	onGetCart func()
}

func newFakeMarketplace(total int64) *fakeMarketplace {
	return &fakeMarketplace{
		cart: &marketplace.Cart{
			ID:        1,
			Items:     []marketplace.CartItem{{ID: 10, Quantity: 1, Subtotal: decimal.NewFromInt(total)}},
			Total:     decimal.NewFromInt(total),
			ItemCount: 1,
		},
		polled: make(chan struct{}, 64),
	}
}

func (f *fakeMarketplace) GetCart(context.Context) (*marketplace.Cart, error) {
	if f.onGetCart != nil {
		f.onGetCart()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cart, nil
}

func (f *fakeMarketplace) ClearCart(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.cart = &marketplace.Cart{ID: 1}
	return nil
}

func (f *fakeMarketplace) CreateOrder(_ context.Context, req marketplace.CreateOrderRequest) (*marketplace.CreateOrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.order = &marketplace.Order{
		ID:            900,
		TotalAmount:   f.cart.Total,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: enums.OrderPaymentPending,
	}
	return &marketplace.CreateOrderResult{Order: f.order, Message: "Order created successfully"}, nil
}

func (f *fakeMarketplace) GetOrder(_ context.Context, orderID int64) (*marketplace.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.order == nil || f.order.ID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
	}
	return f.order, nil
}

func (f *fakeMarketplace) StartSTKPush(_ context.Context, orderID int64, phone string) (*marketplace.STKPushResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, phone)
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	return &marketplace.STKPushResult{CheckoutRequestID: "ws_CO_900"}, nil
}

func (f *fakeMarketplace) PaymentStatus(_ context.Context, orderID int64) (*marketplace.PaymentStatusResult, error) {
	f.mu.Lock()
	status := enums.GatewayPaymentPending
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	f.mu.Unlock()
	f.polled <- struct{}{}
	return &marketplace.PaymentStatusResult{Status: status}, nil
}

func (f *fakeMarketplace) clearCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Type
}

func (e *eventLog) Publish(_ context.Context, evt events.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt.Type)
	return nil
}

func (e *eventLog) Close() error { return nil }

func (e *eventLog) types() []events.Type {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.Type(nil), e.events...)
}

type harness struct {
	api    *fakeMarketplace
	poller *payments.Poller
	clock  clockwork.FakeClock
	lock   *cart.MemoryLock
	events *eventLog
	svc    Service
}

func newHarness(t *testing.T, api *fakeMarketplace) *harness {
	t.Helper()
	clock := clockwork.NewFakeClock()
	log := &eventLog{}
	poller, err := payments.NewPoller(api, paymentTimings, payments.WithClock(clock), payments.WithPublisher(log))
	require.NoError(t, err)
	t.Cleanup(func() { _ = poller.Shutdown(context.Background()) })

	lock := cart.NewMemoryLock(30*time.Second, clock)
	svc, err := NewService(api, poller, lock, log, nil, nil)
	require.NoError(t, err)
	return &harness{api: api, poller: poller, clock: clock, lock: lock, events: log, svc: svc}
}

func (h *harness) poll(t *testing.T) {
	t.Helper()
	h.clock.Advance(paymentTimings.PollInterval)
	select {
	case <-h.api.polled:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a payment status poll")
	}
}

func TestCheckoutCashClearsCartImmediately(t *testing.T) {
	h := newHarness(t, newFakeMarketplace(1500))

	res, err := h.svc.Checkout(context.Background(), shopper, Input{PaymentMethod: "cash_on_delivery", HubID: 2})
	require.NoError(t, err)

	assert.Equal(t, "/orders/900", res.Redirect)
	assert.Nil(t, res.Attempt)
	assert.Equal(t, 1, h.api.clearCount())
	require.Len(t, h.api.created, 1)
	assert.Equal(t, int64(2), h.api.created[0].HubID)
	assert.Empty(t, h.api.pushes)
	_, ok := h.poller.Get(900)
	assert.False(t, ok)
	assert.Equal(t, []events.Type{events.TypeOrderPlaced}, h.events.types())

	held, _ := h.lock.Held(context.Background(), shopper.UserID)
	assert.False(t, held, "lock must be released after checkout")
}

func TestCheckoutMpesaClearsCartOnlyAfterPayment(t *testing.T) {
	api := newFakeMarketplace(2500)
	api.statuses = []enums.GatewayPaymentStatus{enums.GatewayPaymentPending, enums.GatewayPaymentPending, enums.GatewayPaymentCompleted}
	h := newHarness(t, api)

	res, err := h.svc.Checkout(context.Background(), shopper, Input{PaymentMethod: "mpesa_delivery", Phone: "0712345678"})
	require.NoError(t, err)
	require.NotNil(t, res.Attempt)
	assert.Equal(t, enums.PaymentAttemptPending, res.Attempt.Status)
	assert.Empty(t, res.Redirect)
	assert.Equal(t, []string{"254712345678"}, api.pushes)
	assert.Equal(t, "254712345678", api.created[0].MpesaPhoneNumber)
	assert.True(t, res.Attempt.Amount.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, 0, api.clearCount(), "cart must survive until payment completes")

	h.clock.BlockUntil(2)
	h.poll(t)
	h.poll(t)
	h.poll(t)

	require.Eventually(t, func() bool {
		snap, _ := h.poller.Get(900)
		return snap.Status == enums.PaymentAttemptSuccess
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, api.clearCount())

	h.clock.BlockUntil(1)
	h.clock.Advance(paymentTimings.SuccessGrace)
	require.Eventually(t, func() bool {
		snap, _ := h.poller.Get(900)
		return snap.Redirect == "/orders/900"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, api.clearCount())
	assert.Equal(t, []events.Type{events.TypeOrderPlaced, events.TypePaymentSucceeded}, h.events.types())
}

func TestCheckoutMpesaPushRejectedLeavesCartAndOrder(t *testing.T) {
	api := newFakeMarketplace(2500)
	api.pushErr = pkgerrors.New(pkgerrors.CodeUpstreamRejected, "Unable to reach phone")
	h := newHarness(t, api)

	res, err := h.svc.Checkout(context.Background(), shopper, Input{PaymentMethod: "mpesa_delivery", Phone: "0712345678"})
	require.NoError(t, err)
	require.NotNil(t, res.Attempt)
	assert.Equal(t, int64(900), res.Order.ID)
	assert.Equal(t, enums.PaymentAttemptFailed, res.Attempt.Status)
	assert.Equal(t, enums.PaymentFailureRejected, res.Attempt.FailureReason)
	assert.Equal(t, "Unable to reach phone", res.Attempt.Message)
	assert.Equal(t, 0, h.poller.Active())
	assert.Equal(t, 0, api.clearCount())
	assert.False(t, api.cart.IsEmpty())
}

func TestCheckoutRetryPaymentReopensAttempt(t *testing.T) {
	api := newFakeMarketplace(2500)
	api.pushErr = pkgerrors.New(pkgerrors.CodeUpstreamRejected, "Unable to reach phone")
	h := newHarness(t, api)

	_, err := h.svc.Checkout(context.Background(), shopper, Input{PaymentMethod: "mpesa_delivery", Phone: "0712345678"})
	require.NoError(t, err)

	api.mu.Lock()
	api.pushErr = nil
	phone := "254712345678"
	api.order.MpesaPhoneNumber = &phone
	api.mu.Unlock()

	snap, err := h.svc.RetryPayment(context.Background(), shopper, 900, "")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentAttemptPending, snap.Status)
	assert.Equal(t, []string{"254712345678", "254712345678"}, api.pushes)
	assert.Equal(t, 1, h.poller.Active())
}

func TestCheckoutRetryPaymentSuccessKeepsCurrentCart(t *testing.T) {
	api := newFakeMarketplace(2500)
	api.pushErr = pkgerrors.New(pkgerrors.CodeUpstreamRejected, "Unable to reach phone")
	api.statuses = []enums.GatewayPaymentStatus{enums.GatewayPaymentCompleted}
	h := newHarness(t, api)

	_, err := h.svc.Checkout(context.Background(), shopper, Input{PaymentMethod: "mpesa_delivery", Phone: "0712345678"})
	require.NoError(t, err)

	// The shopper fills a new cart before paying the older order.
	api.mu.Lock()
	api.pushErr = nil
	api.cart = &marketplace.Cart{
		ID:        1,
		Items:     []marketplace.CartItem{{ID: 11, Quantity: 3, Subtotal: decimal.NewFromInt(900)}},
		Total:     decimal.NewFromInt(900),
		ItemCount: 3,
	}
	api.mu.Unlock()

	_, err = h.svc.RetryPayment(context.Background(), shopper, 900, "0712345678")
	require.NoError(t, err)

	h.clock.BlockUntil(2)
	h.poll(t)
	require.Eventually(t, func() bool {
		snap, _ := h.poller.Get(900)
		return snap.Status == enums.PaymentAttemptSuccess
	}, 2*time.Second, 5*time.Millisecond)

	h.clock.BlockUntil(1)
	h.clock.Advance(paymentTimings.SuccessGrace)
	require.Eventually(t, func() bool {
		snap, _ := h.poller.Get(900)
		return snap.Redirect == "/orders/900"
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, api.clearCount())
	api.mu.Lock()
	assert.Len(t, api.cart.Items, 1)
	assert.Equal(t, 3, api.cart.ItemCount)
	api.mu.Unlock()
}

func TestCheckoutRetryPaymentRejectsPaidOrders(t *testing.T) {
	api := newFakeMarketplace(2500)
	h := newHarness(t, api)
	api.order = &marketplace.Order{ID: 900, PaymentMethod: enums.PaymentMethodMpesa, PaymentStatus: enums.OrderPaymentPaid, TotalAmount: decimal.NewFromInt(2500)}

	_, err := h.svc.RetryPayment(context.Background(), shopper, 900, "0712345678")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	api.order.PaymentStatus = enums.OrderPaymentPending
	api.order.PaymentMethod = enums.PaymentMethodCash
	_, err = h.svc.RetryPayment(context.Background(), shopper, 900, "0712345678")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, api.pushes)
}

func TestCheckoutEmptyCart(t *testing.T) {
	api := newFakeMarketplace(0)
	api.cart = &marketplace.Cart{ID: 1}
	h := newHarness(t, api)

	_, err := h.svc.Checkout(context.Background(), shopper, Input{PaymentMethod: "cash_on_delivery", HubID: 2})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeCartEmpty, typed.Code())
	assert.Equal(t, map[string]any{"redirect": "/cart"}, typed.Details())
	assert.Empty(t, api.created)
}

func TestCheckoutValidationHappensBeforeNetwork(t *testing.T) {
	api := newFakeMarketplace(1500)
	calls := 0
	api.onGetCart = func() { calls++ }
	h := newHarness(t, api)

	cases := []Input{
		{PaymentMethod: "mpesa_delivery"},
		{PaymentMethod: "mpesa_delivery", Phone: "12345"},
		{PaymentMethod: "cash_on_delivery"},
		{PaymentMethod: "bitcoin"},
	}
	for _, in := range cases {
		_, err := h.svc.Checkout(context.Background(), shopper, in)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v: %v", in, err)
	}
	assert.Equal(t, 0, calls)
	assert.Empty(t, api.created)
}

func TestCheckoutIsNotReentrant(t *testing.T) {
	api := newFakeMarketplace(1500)
	h := newHarness(t, api)

	var nested error
	api.onGetCart = func() {
		api.onGetCart = nil
		_, nested = h.svc.Checkout(context.Background(), shopper, Input{PaymentMethod: "cash_on_delivery", HubID: 2})
	}

	_, err := h.svc.Checkout(context.Background(), shopper, Input{PaymentMethod: "cash_on_delivery", HubID: 2})
	require.NoError(t, err)
	assert.True(t, pkgerrors.IsCode(nested, pkgerrors.CodeCheckoutInProgress))
	assert.Len(t, api.created, 1)
}

func TestCheckoutOrderRejectionLeavesCart(t *testing.T) {
	api := newFakeMarketplace(1500)
	api.orderErr = pkgerrors.New(pkgerrors.CodeUpstreamRejected, "Insufficient stock for Maize Flour")
	h := newHarness(t, api)

	_, err := h.svc.Checkout(context.Background(), shopper, Input{PaymentMethod: "cash_on_delivery", HubID: 2})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "Insufficient stock for Maize Flour", typed.Message())
	assert.Equal(t, 0, api.clearCount())
	assert.Empty(t, h.events.types())
}

func TestCheckoutRequiresCustomer(t *testing.T) {
	h := newHarness(t, newFakeMarketplace(1500))
	_, err := h.svc.Checkout(context.Background(), auth.Actor{UserID: "9", Role: enums.UserRoleMerchant}, Input{PaymentMethod: "cash_on_delivery", HubID: 2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
