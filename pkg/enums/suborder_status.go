package enums

import (
	"fmt"
	"strings"
)

// SuborderStatus tracks the fulfillment lifecycle of one merchant's slice of an order.
type SuborderStatus string

const (
	SuborderStatusPendingPayment           SuborderStatus = "PENDING_PAYMENT"
	SuborderStatusPaidAwaitingShipment     SuborderStatus = "PAID_AWAITING_SHIPMENT"
	SuborderStatusPendingMerchantDelivery  SuborderStatus = "PENDING_MERCHANT_DELIVERY"
	SuborderStatusShipped                  SuborderStatus = "SHIPPED"
	SuborderStatusInTransit                SuborderStatus = "IN_TRANSIT"
	SuborderStatusDelivered                SuborderStatus = "DELIVERED"
	SuborderStatusAtHubVerificationPending SuborderStatus = "AT_HUB_VERIFICATION_PENDING"
	SuborderStatusApprovedForDelivery      SuborderStatus = "APPROVED_FOR_DELIVERY"
	SuborderStatusQualityCheckFailed       SuborderStatus = "QUALITY_CHECK_FAILED"
	SuborderStatusPickedUp                 SuborderStatus = "PICKED_UP"
	SuborderStatusAtHubReadyForPickup      SuborderStatus = "AT_HUB_READY_FOR_PICKUP"
	SuborderStatusPaymentReceivedForPickup SuborderStatus = "PAYMENT_RECEIVED_READY_FOR_COLLECTION"
	SuborderStatusCompleted                SuborderStatus = "COMPLETED"
	SuborderStatusCancelled                SuborderStatus = "CANCELLED"
	SuborderStatusExpired                  SuborderStatus = "EXPIRED"
)

var validSuborderStatuses = []SuborderStatus{
	SuborderStatusPendingPayment,
	SuborderStatusPaidAwaitingShipment,
	SuborderStatusPendingMerchantDelivery,
	SuborderStatusShipped,
	SuborderStatusInTransit,
	SuborderStatusDelivered,
	SuborderStatusAtHubVerificationPending,
	SuborderStatusApprovedForDelivery,
	SuborderStatusQualityCheckFailed,
	SuborderStatusPickedUp,
	SuborderStatusAtHubReadyForPickup,
	SuborderStatusPaymentReceivedForPickup,
	SuborderStatusCompleted,
	SuborderStatusCancelled,
	SuborderStatusExpired,
}

// SuborderStatuses returns the known statuses in lifecycle order.
func SuborderStatuses() []SuborderStatus {
	out := make([]SuborderStatus, len(validSuborderStatuses))
	copy(out, validSuborderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s SuborderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SuborderStatus.
func (s SuborderStatus) IsValid() bool {
	for _, candidate := range validSuborderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// NormalizeSuborderStatus upper-cases a raw code; the marketplace emits both spellings.
// Unknown codes are kept as-is so callers can still render them.
func NormalizeSuborderStatus(value string) SuborderStatus {
	return SuborderStatus(strings.ToUpper(strings.TrimSpace(value)))
}

// ParseSuborderStatus converts raw input into a known SuborderStatus.
func ParseSuborderStatus(value string) (SuborderStatus, error) {
	normalized := NormalizeSuborderStatus(value)
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid suborder status %q", value)
}
