package orders

import "github.com/markethub/storefront-gateway/pkg/enums"

// StatusView is how a suborder status is rendered on every surface.
type StatusView struct {
	Code     string         `json:"code"`
	Label    string         `json:"label"`
	Severity enums.Severity `json:"severity"`
}

type vocabularyEntry struct {
	label    string
	severity enums.Severity
}

var vocabulary = map[enums.SuborderStatus]vocabularyEntry{
	enums.SuborderStatusPendingPayment:           {"Pending Payment", enums.SeverityPending},
	enums.SuborderStatusPaidAwaitingShipment:     {"Payment Received", enums.SeverityInfo},
	enums.SuborderStatusPendingMerchantDelivery:  {"Awaiting Delivery", enums.SeverityPending},
	enums.SuborderStatusShipped:                  {"Shipped", enums.SeverityInfo},
	enums.SuborderStatusInTransit:                {"In Transit", enums.SeverityInfo},
	enums.SuborderStatusDelivered:                {"Delivered", enums.SeveritySuccess},
	enums.SuborderStatusAtHubVerificationPending: {"At Hub - Pending Verification", enums.SeverityPending},
	enums.SuborderStatusApprovedForDelivery:      {"Approved for Delivery", enums.SeverityInfo},
	enums.SuborderStatusQualityCheckFailed:       {"Quality Check Failed", enums.SeverityDanger},
	enums.SuborderStatusPickedUp:                 {"Picked Up", enums.SeveritySuccess},
	enums.SuborderStatusAtHubReadyForPickup:      {"Ready for Pickup", enums.SeveritySuccess},
	enums.SuborderStatusPaymentReceivedForPickup: {"Paid - Ready for Collection", enums.SeveritySuccess},
	enums.SuborderStatusCompleted:                {"Completed", enums.SeveritySuccess},
	enums.SuborderStatusCancelled:                {"Cancelled", enums.SeverityDanger},
	enums.SuborderStatusExpired:                  {"Expired", enums.SeverityDanger},
}

// Label returns the human label for a status code. Unknown codes render as themselves.
func Label(code string) string {
	if entry, ok := vocabulary[enums.NormalizeSuborderStatus(code)]; ok {
		return entry.label
	}
	return code
}

// Severity returns the badge weight for a status code; unknown codes are neutral.
func Severity(code string) enums.Severity {
	if entry, ok := vocabulary[enums.NormalizeSuborderStatus(code)]; ok {
		return entry.severity
	}
	return enums.SeverityNeutral
}

// Describe bundles code, label and severity. Known codes are returned in canonical form.
func Describe(code string) StatusView {
	normalized := enums.NormalizeSuborderStatus(code)
	if entry, ok := vocabulary[normalized]; ok {
		return StatusView{Code: normalized.String(), Label: entry.label, Severity: entry.severity}
	}
	return StatusView{Code: code, Label: code, Severity: enums.SeverityNeutral}
}

// Vocabulary lists every known status in lifecycle order.
func Vocabulary() []StatusView {
	statuses := enums.SuborderStatuses()
	out := make([]StatusView, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, Describe(status.String()))
	}
	return out
}
