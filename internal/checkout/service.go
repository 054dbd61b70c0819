package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/markethub/storefront-gateway/internal/cart"
	"github.com/markethub/storefront-gateway/internal/payments"
	"github.com/markethub/storefront-gateway/pkg/auth"
	"github.com/markethub/storefront-gateway/pkg/enums"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/events"
	"github.com/markethub/storefront-gateway/pkg/logger"
	"github.com/markethub/storefront-gateway/pkg/marketplace"
	"github.com/markethub/storefront-gateway/pkg/metrics"
)

const cartRedirect = "/cart"

// Marketplace is the slice of the marketplace API checkout drives.
type Marketplace interface {
	GetCart(ctx context.Context) (*marketplace.Cart, error)
	ClearCart(ctx context.Context) error
	CreateOrder(ctx context.Context, req marketplace.CreateOrderRequest) (*marketplace.CreateOrderResult, error)
	GetOrder(ctx context.Context, orderID int64) (*marketplace.Order, error)
}

// Payments starts mobile-money attempts.
type Payments interface {
	Start(ctx context.Context, in payments.StartInput) (payments.Snapshot, error)
}

// Service executes checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, actor auth.Actor, input Input) (*Result, error)
	RetryPayment(ctx context.Context, actor auth.Actor, orderID int64, phone string) (*payments.Snapshot, error)
}

// Input captures the checkout form.
type Input struct {
	PaymentMethod   string
	Phone           string
	HubID           int64
	DeliveryAddress string
	DeliveryCity    string
}

// Result describes a placed order. Attempt is set for M-Pesa orders; Redirect is set once
// the buyer can move on to the order page.
type Result struct {
	Order    *marketplace.Order `json:"order"`
	Attempt  *payments.Snapshot `json:"payment_attempt,omitempty"`
	Redirect string             `json:"redirect,omitempty"`
	Message  string             `json:"message,omitempty"`
}

type service struct {
	api      Marketplace
	payments Payments
	lock     cart.Lock
	events   events.Publisher
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	api Marketplace,
	pay Payments,
	lock cart.Lock,
	publisher events.Publisher,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("marketplace client required")
	}
	if pay == nil {
		return nil, fmt.Errorf("payment poller required")
	}
	if lock == nil {
		return nil, fmt.Errorf("checkout lock required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &service{
		api:      api,
		payments: pay,
		lock:     lock,
		events:   publisher,
		metrics:  m,
		logg:     logg,
	}, nil
}

func (s *service) Checkout(ctx context.Context, actor auth.Actor, input Input) (*Result, error) {
	method, req, err := buildOrderRequest(input)
	if err != nil {
		s.metrics.Observe(string(method), "invalid")
		return nil, err
	}
	if !actor.Is(enums.UserRoleCustomer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can check out")
	}

	lease, ok, err := s.lock.Acquire(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	if !ok {
		s.metrics.Observe(string(method), "in_progress")
		return nil, pkgerrors.New(pkgerrors.CodeCheckoutInProgress, "a checkout is already in progress")
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.warn(ctx, "checkout.lock.release_failed", err)
		}
	}()

	current, err := s.api.GetCart(ctx)
	if err != nil {
		return nil, err
	}
	if current.IsEmpty() {
		s.metrics.Observe(string(method), "cart_empty")
		return nil, pkgerrors.New(pkgerrors.CodeCartEmpty, "your cart is empty").
			WithDetails(map[string]any{"redirect": cartRedirect})
	}

	created, err := s.api.CreateOrder(ctx, req)
	if err != nil {
		s.metrics.Observe(string(method), "rejected")
		return nil, err
	}
	order := created.Order
	ctx = s.withOrder(ctx, order.ID)
	s.publishPlaced(ctx, actor, order, req.HubID)

	result := &Result{Order: order, Message: created.Message}
	switch method {
	case enums.PaymentMethodCash:
		// Cash orders are final at creation, so the cart goes now.
		if err := s.api.ClearCart(ctx); err != nil {
			s.warn(ctx, "checkout.cart.clear_failed", err)
		}
		result.Redirect = orderRedirect(order.ID)
		s.metrics.Observe(string(method), "placed")
		s.info(ctx, "checkout.order.placed")
		return result, nil
	default:
		snap, err := s.startPayment(ctx, actor, order, req.MpesaPhoneNumber, s.clearCart)
		if err != nil {
			s.metrics.Observe(string(method), "payment_unavailable")
			return nil, err
		}
		result.Attempt = &snap
		outcome := "placed"
		if snap.Status == enums.PaymentAttemptFailed {
			outcome = "payment_rejected"
		}
		s.metrics.Observe(string(method), outcome)
		s.info(ctx, "checkout.order.placed")
		return result, nil
	}
}

func (s *service) RetryPayment(ctx context.Context, actor auth.Actor, orderID int64, phone string) (*payments.Snapshot, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !actor.Is(enums.UserRoleCustomer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can pay for orders")
	}

	order, err := s.api.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodMpesa {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid with M-Pesa")
	}
	if order.IsCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}
	if order.PaymentStatus == enums.OrderPaymentPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	if strings.TrimSpace(phone) == "" && order.MpesaPhoneNumber != nil {
		phone = *order.MpesaPhoneNumber
	}
	// The cart may hold new items by now, so paying an older order leaves it alone.
	snap, err := s.startPayment(s.withOrder(ctx, orderID), actor, order, phone, nil)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// startPayment opens an attempt for the order. onSuccess may be nil.
func (s *service) startPayment(ctx context.Context, actor auth.Actor, order *marketplace.Order, phone string, onSuccess payments.SuccessFunc) (payments.Snapshot, error) {
	return s.payments.Start(ctx, payments.StartInput{
		OrderID:   order.ID,
		Amount:    order.TotalAmount,
		Phone:     phone,
		Actor:     actor,
		OnSuccess: onSuccess,
	})
}

// clearCart empties the cart the paid order was built from.
func (s *service) clearCart(ctx context.Context, _ payments.Snapshot) error {
	return s.api.ClearCart(ctx)
}

func buildOrderRequest(input Input) (enums.PaymentMethod, marketplace.CreateOrderRequest, error) {
	method, err := enums.ParsePaymentMethod(strings.TrimSpace(input.PaymentMethod))
	if err != nil {
		return "", marketplace.CreateOrderRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment method").
			WithDetails(map[string]any{"payment_method": input.PaymentMethod})
	}
	req := marketplace.CreateOrderRequest{
		PaymentMethod:   method,
		DeliveryAddress: strings.TrimSpace(input.DeliveryAddress),
		DeliveryCity:    strings.TrimSpace(input.DeliveryCity),
	}
	if input.HubID < 0 {
		return method, req, pkgerrors.New(pkgerrors.CodeValidation, "hub id must be positive")
	}
	req.HubID = input.HubID

	switch method {
	case enums.PaymentMethodMpesa:
		phone, err := payments.NormalizePhone(input.Phone)
		if err != nil {
			return method, req, err
		}
		req.MpesaPhoneNumber = phone
	case enums.PaymentMethodCash:
		if input.HubID == 0 {
			return method, req, pkgerrors.New(pkgerrors.CodeValidation, "select a pickup hub for cash on delivery").
				WithDetails(map[string]any{"hub_id": "required"})
		}
	}
	return method, req, nil
}

func (s *service) publishPlaced(ctx context.Context, actor auth.Actor, order *marketplace.Order, hubID int64) {
	err := s.events.Publish(ctx, events.Event{
		Type:  events.TypeOrderPlaced,
		Key:   events.OrderKey(order.ID),
		Actor: &events.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
		Data: events.OrderPlaced{
			OrderID:       order.ID,
			PaymentMethod: string(order.PaymentMethod),
			TotalAmount:   order.TotalAmount,
			HubID:         hubID,
		},
	})
	if err != nil {
		s.warn(ctx, "checkout.event.publish_failed", err)
	}
}

func orderRedirect(orderID int64) string {
	return "/orders/" + strconv.FormatInt(orderID, 10)
}

func (s *service) withOrder(ctx context.Context, orderID int64) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithOrderID(ctx, strconv.FormatInt(orderID, 10))
}

func (s *service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.WarnErr(ctx, msg, err)
	}
}
