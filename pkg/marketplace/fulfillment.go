package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/markethub/storefront-gateway/pkg/enums"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
)

// HubDecision is the verify outcome a hub records for a delivered suborder.
type HubDecision string

const (
	HubDecisionApproved HubDecision = "approved"
	HubDecisionRejected HubDecision = "rejected"
)

func (c *Client) GetMerchantSuborder(ctx context.Context, suborderID int64) (*Suborder, error) {
	return c.getSuborder(ctx, "get_merchant_suborder", fmt.Sprintf("/merchant/orders/%d", suborderID), suborderID)
}

func (c *Client) GetHubSuborder(ctx context.Context, suborderID int64) (*Suborder, error) {
	return c.getSuborder(ctx, "get_hub_suborder", fmt.Sprintf("/hub/orders/%d", suborderID), suborderID)
}

func (c *Client) getSuborder(ctx context.Context, operation, path string, suborderID int64) (*Suborder, error) {
	if suborderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "suborder id is required")
	}
	var suborder Suborder
	if _, err := c.call(ctx, operation, http.MethodGet, path, nil, &suborder); err != nil {
		return nil, err
	}
	if err := suborder.normalize(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid "+operation+" response")
	}
	return &suborder, nil
}

// UpdateMerchantSuborderStatus moves a merchant's suborder; the server uses lowercase codes.
func (c *Client) UpdateMerchantSuborderStatus(ctx context.Context, suborderID int64, status enums.SuborderStatus, notes string) (string, error) {
	if suborderID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "suborder id is required")
	}
	body := map[string]string{"status": strings.ToLower(status.String())}
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		body["notes"] = trimmed
	}
	return c.call(ctx, "update_merchant_suborder", http.MethodPatch, fmt.Sprintf("/merchant/orders/%d/status", suborderID), body, nil)
}

// VerifyHubSuborder records a hub's quality check.
func (c *Client) VerifyHubSuborder(ctx context.Context, suborderID int64, decision HubDecision, notes string) (string, error) {
	if suborderID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "suborder id is required")
	}
	if decision != HubDecisionApproved && decision != HubDecisionRejected {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid hub decision")
	}
	body := map[string]string{"status": string(decision)}
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		body["notes"] = trimmed
	}
	return c.call(ctx, "verify_hub_suborder", http.MethodPost, fmt.Sprintf("/hub/orders/%d/verify", suborderID), body, nil)
}

// PickupHubSuborder marks an approved suborder as collected.
func (c *Client) PickupHubSuborder(ctx context.Context, suborderID int64) (string, error) {
	if suborderID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "suborder id is required")
	}
	return c.call(ctx, "pickup_hub_suborder", http.MethodPost, fmt.Sprintf("/hub/orders/%d/pickup", suborderID), struct{}{}, nil)
}
