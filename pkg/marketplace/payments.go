package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/markethub/storefront-gateway/pkg/enums"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
)

// StartSTKPush asks the gateway to send an M-Pesa prompt to phone for the order.
// A synchronous rejection is returned as an UPSTREAM_REJECTED error carrying the server message.
func (c *Client) StartSTKPush(ctx context.Context, orderID int64, phone string) (*STKPushResult, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if strings.TrimSpace(phone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}

	body := struct {
		OrderID     int64  `json:"order_id"`
		PhoneNumber string `json:"phone_number"`
	}{OrderID: orderID, PhoneNumber: phone}

	var data struct {
		CheckoutRequestID string `json:"checkout_request_id"`
	}
	msg, err := c.call(ctx, "stk_push", http.MethodPost, "/payments/mpesa/stk-push", body, &data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(data.CheckoutRequestID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stk_push response missing checkout_request_id")
	}
	return &STKPushResult{CheckoutRequestID: data.CheckoutRequestID, Message: msg}, nil
}

// PaymentStatus polls the payment outcome for an order. Unknown codes narrow to PENDING.
func (c *Client) PaymentStatus(ctx context.Context, orderID int64) (*PaymentStatusResult, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var data struct {
		Status *string `json:"status"`
	}
	if _, err := c.call(ctx, "payment_status", http.MethodGet, fmt.Sprintf("/payments/status/%d", orderID), nil, &data); err != nil {
		return nil, err
	}
	if data.Status == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment_status response missing status")
	}
	return &PaymentStatusResult{
		Status: enums.ParseGatewayPaymentStatus(*data.Status),
		Raw:    *data.Status,
	}, nil
}
