package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/markethub/storefront-gateway/internal/payments"
	"github.com/markethub/storefront-gateway/pkg/auth"
	"github.com/markethub/storefront-gateway/pkg/enums"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/events"
	"github.com/markethub/storefront-gateway/pkg/logger"
	"github.com/markethub/storefront-gateway/pkg/marketplace"
	"golang.org/x/sync/errgroup"
)

// Marketplace is the slice of the marketplace API the order service drives.
type Marketplace interface {
	GetOrder(ctx context.Context, orderID int64) (*marketplace.Order, error)
	ListOrders(ctx context.Context) ([]marketplace.Order, error)
	CancelOrder(ctx context.Context, orderID int64, reason string) (string, error)
	PaymentStatus(ctx context.Context, orderID int64) (*marketplace.PaymentStatusResult, error)
	GetMerchantSuborder(ctx context.Context, suborderID int64) (*marketplace.Suborder, error)
	GetHubSuborder(ctx context.Context, suborderID int64) (*marketplace.Suborder, error)
	UpdateMerchantSuborderStatus(ctx context.Context, suborderID int64, status enums.SuborderStatus, notes string) (string, error)
	VerifyHubSuborder(ctx context.Context, suborderID int64, decision marketplace.HubDecision, notes string) (string, error)
	PickupHubSuborder(ctx context.Context, suborderID int64) (string, error)
}

// Attempts exposes the live payment attempts kept by the poller.
type Attempts interface {
	Get(orderID int64) (payments.Snapshot, bool)
	Close(orderID int64)
}

// Service defines the order operations exposed to merchants, hubs and customers.
type Service interface {
	ListOrders(ctx context.Context, actor auth.Actor) ([]OrderSummary, error)
	GetOrderDetail(ctx context.Context, actor auth.Actor, orderID int64) (*OrderDetail, error)
	CancelOrder(ctx context.Context, actor auth.Actor, orderID int64, reason string) (*CancelResult, error)
	ListActions(ctx context.Context, actor auth.Actor, suborderID int64) (*ActionsView, error)
	UpdateSuborderStatus(ctx context.Context, actor auth.Actor, input UpdateStatusInput) (*StatusUpdateResult, error)
}

type service struct {
	api      Marketplace
	attempts Attempts
	events   events.Publisher
	logg     *logger.Logger
}

// UpdateStatusInput carries a requested suborder move. From is the status the caller last saw;
// when present the guard runs before the suborder is fetched.
type UpdateStatusInput struct {
	SuborderID int64
	From       string
	Target     string
	Notes      string
}

type StatusUpdateResult struct {
	SuborderID int64      `json:"suborder_id"`
	From       StatusView `json:"from"`
	To         StatusView `json:"to"`
	Message    string     `json:"message,omitempty"`
}

type ActionsView struct {
	SuborderID int64        `json:"suborder_id"`
	Current    StatusView   `json:"current"`
	Next       []StatusView `json:"next"`
}

type CancelResult struct {
	OrderID int64  `json:"order_id"`
	Message string `json:"message,omitempty"`
}

// OrderDetail is an order plus everything the receipt page renders beside it.
type OrderDetail struct {
	Order         *marketplace.Order   `json:"order"`
	Statuses      map[int64]StatusView `json:"suborder_statuses"`
	CanCancel     bool                 `json:"can_cancel"`
	PaymentStatus string               `json:"payment_gateway_status,omitempty"`
	Attempt       *payments.Snapshot   `json:"payment_attempt,omitempty"`
}

// OrderSummary is one row of the caller's order history.
type OrderSummary struct {
	Order     marketplace.Order    `json:"order"`
	Statuses  map[int64]StatusView `json:"suborder_statuses"`
	CanCancel bool                 `json:"can_cancel"`
}

// NewService builds the order service with the required dependencies.
func NewService(api Marketplace, attempts Attempts, publisher events.Publisher, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("marketplace client required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("payment attempts required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &service{api: api, attempts: attempts, events: publisher, logg: logg}, nil
}

func (s *service) ListOrders(ctx context.Context, actor auth.Actor) ([]OrderSummary, error) {
	if actor.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	list, err := s.api.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]OrderSummary, 0, len(list))
	for i := range list {
		out = append(out, OrderSummary{
			Order:     list[i],
			Statuses:  suborderStatuses(&list[i]),
			CanCancel: orderCancellable(&list[i]),
		})
	}
	return out, nil
}

func (s *service) GetOrderDetail(ctx context.Context, actor auth.Actor, orderID int64) (*OrderDetail, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		order         *marketplace.Order
		gatewayStatus string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = s.api.GetOrder(gctx, orderID)
		return err
	})
	g.Go(func() error {
		// The status endpoint is advisory here; a failure must not hide the order.
		result, err := s.api.PaymentStatus(gctx, orderID)
		if err != nil {
			if s.logg != nil && gctx.Err() == nil {
				s.logg.WarnErr(s.logg.WithOrderID(ctx, fmt.Sprint(orderID)), "orders.detail.payment_status_unavailable", err)
			}
			return nil
		}
		gatewayStatus = result.Status.String()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail := &OrderDetail{
		Order:     order,
		Statuses:  suborderStatuses(order),
		CanCancel: orderCancellable(order),
	}
	if order.PaymentMethod == enums.PaymentMethodMpesa {
		detail.PaymentStatus = gatewayStatus
	}
	if snapshot, ok := s.attempts.Get(orderID); ok {
		detail.Attempt = &snapshot
	}
	return detail, nil
}

func (s *service) CancelOrder(ctx context.Context, actor auth.Actor, orderID int64, reason string) (*CancelResult, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !actor.Is(enums.UserRoleCustomer, enums.UserRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can cancel orders")
	}

	order, err := s.api.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already cancelled")
	}
	for _, sub := range order.Suborders {
		if !CanCancel(sub.Status) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").WithDetails(map[string]any{
				"suborder_id": sub.ID,
				"status":      sub.Status,
			})
		}
	}

	msg, err := s.api.CancelOrder(ctx, orderID, reason)
	if err != nil {
		return nil, err
	}

	// A pending prompt for a cancelled order must not clear the cart later.
	s.attempts.Close(orderID)
	s.publish(ctx, actor, events.Event{
		Type: events.TypeOrderCancelled,
		Key:  events.OrderKey(orderID),
		Data: events.OrderCancelled{OrderID: orderID, Reason: strings.TrimSpace(reason)},
	})
	return &CancelResult{OrderID: orderID, Message: msg}, nil
}

func (s *service) ListActions(ctx context.Context, actor auth.Actor, suborderID int64) (*ActionsView, error) {
	suborder, err := s.loadSuborder(ctx, actor, suborderID)
	if err != nil {
		return nil, err
	}
	next := Allowed(actor.Role, suborder.Status)
	view := &ActionsView{
		SuborderID: suborder.ID,
		Current:    Describe(suborder.Status.String()),
		Next:       make([]StatusView, 0, len(next)),
	}
	for _, status := range next {
		view.Next = append(view.Next, Describe(status.String()))
	}
	return view, nil
}

func (s *service) UpdateSuborderStatus(ctx context.Context, actor auth.Actor, input UpdateStatusInput) (*StatusUpdateResult, error) {
	if input.SuborderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "suborder id required")
	}
	target, err := enums.ParseSuborderStatus(input.Target)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown target status")
	}
	if err := requireFulfillmentRole(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.From) != "" {
		if err := CheckTransition(actor.Role, enums.NormalizeSuborderStatus(input.From), target); err != nil {
			return nil, err
		}
	}

	suborder, err := s.loadSuborder(ctx, actor, input.SuborderID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(actor.Role, suborder.Status, target); err != nil {
		return nil, err
	}

	msg, err := s.dispatch(ctx, actor, suborder.ID, target, input.Notes)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, events.Event{
		Type: events.TypeSuborderStatusChange,
		Key:  events.OrderKey(suborder.OrderID),
		Data: events.SuborderStatusChanged{SuborderID: suborder.ID, From: suborder.Status.String(), To: target.String()},
	})
	return &StatusUpdateResult{
		SuborderID: suborder.ID,
		From:       Describe(suborder.Status.String()),
		To:         Describe(target.String()),
		Message:    msg,
	}, nil
}

// dispatch picks the server endpoint that owns the move for this actor.
func (s *service) dispatch(ctx context.Context, actor auth.Actor, suborderID int64, target enums.SuborderStatus, notes string) (string, error) {
	if actor.Role != enums.UserRoleHubStaff {
		return s.api.UpdateMerchantSuborderStatus(ctx, suborderID, target, notes)
	}
	switch target {
	case enums.SuborderStatusApprovedForDelivery:
		return s.api.VerifyHubSuborder(ctx, suborderID, marketplace.HubDecisionApproved, notes)
	case enums.SuborderStatusQualityCheckFailed:
		return s.api.VerifyHubSuborder(ctx, suborderID, marketplace.HubDecisionRejected, notes)
	case enums.SuborderStatusPickedUp:
		return s.api.PickupHubSuborder(ctx, suborderID)
	default:
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "transition not permitted")
	}
}

func (s *service) loadSuborder(ctx context.Context, actor auth.Actor, suborderID int64) (*marketplace.Suborder, error) {
	if suborderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "suborder id required")
	}
	if err := requireFulfillmentRole(actor); err != nil {
		return nil, err
	}
	if actor.Role == enums.UserRoleHubStaff {
		return s.api.GetHubSuborder(ctx, suborderID)
	}
	return s.api.GetMerchantSuborder(ctx, suborderID)
}

func (s *service) publish(ctx context.Context, actor auth.Actor, evt events.Event) {
	evt.Actor = &events.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
	if err := s.events.Publish(ctx, evt); err != nil && s.logg != nil {
		s.logg.WarnErr(s.logg.WithField(ctx, "event_type", string(evt.Type)), "orders.event.publish_failed", err)
	}
}

// requireFulfillmentRole admits the roles the marketplace serves suborders to. Admins pass the
// transition guard but the marketplace has no admin fulfillment endpoint.
func requireFulfillmentRole(actor auth.Actor) error {
	if actor.Is(enums.UserRoleAdmin) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "suborders are fulfilled by their merchant or hub staff")
	}
	if !actor.Is(enums.UserRoleMerchant, enums.UserRoleHubStaff) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "fulfillment role required")
	}
	return nil
}

func orderCancellable(order *marketplace.Order) bool {
	if order == nil || order.IsCancelled || len(order.Suborders) == 0 {
		return false
	}
	for _, sub := range order.Suborders {
		if !CanCancel(sub.Status) {
			return false
		}
	}
	return true
}

func suborderStatuses(order *marketplace.Order) map[int64]StatusView {
	statuses := make(map[int64]StatusView, len(order.Suborders))
	for _, sub := range order.Suborders {
		statuses[sub.ID] = Describe(sub.Status.String())
	}
	return statuses
}
