package enums

import "strings"

// GatewayPaymentStatus is the status reported by the marketplace's payment status endpoint.
type GatewayPaymentStatus string

const (
	GatewayPaymentCompleted GatewayPaymentStatus = "COMPLETED"
	GatewayPaymentFailed    GatewayPaymentStatus = "FAILED"
	GatewayPaymentCancelled GatewayPaymentStatus = "CANCELLED"
	GatewayPaymentPending   GatewayPaymentStatus = "PENDING"
)

// ParseGatewayPaymentStatus never fails: anything unrecognised is treated as PENDING.
func ParseGatewayPaymentStatus(value string) GatewayPaymentStatus {
	switch GatewayPaymentStatus(strings.ToUpper(strings.TrimSpace(value))) {
	case GatewayPaymentCompleted:
		return GatewayPaymentCompleted
	case GatewayPaymentFailed:
		return GatewayPaymentFailed
	case GatewayPaymentCancelled:
		return GatewayPaymentCancelled
	default:
		return GatewayPaymentPending
	}
}

// String implements fmt.Stringer.
func (g GatewayPaymentStatus) String() string {
	return string(g)
}

// IsFailure reports whether the gateway ended the push without payment.
func (g GatewayPaymentStatus) IsFailure() bool {
	return g == GatewayPaymentFailed || g == GatewayPaymentCancelled
}
