package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
)

// CreateOrder submits the caller's cart as an order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if !req.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}

	var raw json.RawMessage
	msg, err := c.call(ctx, "create_order", http.MethodPost, "/orders", req, &raw)
	if err != nil {
		return nil, err
	}

	// M-Pesa orders come back wrapped as {order, checkout_request_id}; cash orders are the bare order.
	var wrapped struct {
		Order             *Order `json:"order"`
		CheckoutRequestID string `json:"checkout_request_id"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode create_order response")
	}
	order := wrapped.Order
	if order == nil {
		order = &Order{}
		if err := json.Unmarshal(raw, order); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode create_order response")
		}
	}
	if err := order.normalize(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid create_order response")
	}
	return &CreateOrderResult{Order: order, CheckoutRequestID: wrapped.CheckoutRequestID, Message: msg}, nil
}

// GetOrder fetches one of the caller's orders.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var order Order
	if _, err := c.call(ctx, "get_order", http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil, &order); err != nil {
		return nil, err
	}
	if err := order.normalize(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid get_order response")
	}
	return &order, nil
}

// ListOrders returns the caller's orders, newest first as ordered by the server.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if _, err := c.call(ctx, "list_orders", http.MethodGet, "/orders", nil, &orders); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := orders[i].normalize(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid list_orders response")
		}
	}
	return orders, nil
}

// CancelOrder asks the server to cancel an order. The server remains the final authority.
func (c *Client) CancelOrder(ctx context.Context, orderID int64, reason string) (string, error) {
	if orderID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	body := map[string]string{"reason": strings.TrimSpace(reason)}
	return c.call(ctx, "cancel_order", http.MethodPost, fmt.Sprintf("/orders/%d/cancel", orderID), body, nil)
}
