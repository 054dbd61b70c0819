package orders

import (
	"testing"

	"github.com/markethub/storefront-gateway/pkg/enums"
	"github.com/stretchr/testify/assert"
)

func TestLabelKnownCodes(t *testing.T) {
	assert.Equal(t, "Pending Payment", Label("PENDING_PAYMENT"))
	assert.Equal(t, "Payment Received", Label("paid_awaiting_shipment"))
	assert.Equal(t, "At Hub - Pending Verification", Label("AT_HUB_VERIFICATION_PENDING"))
}

func TestUnknownCodesFallBackToRaw(t *testing.T) {
	assert.Equal(t, "on_the_moon", Label("on_the_moon"))
	assert.Equal(t, enums.SeverityNeutral, Severity("on_the_moon"))

	view := Describe("on_the_moon")
	assert.Equal(t, StatusView{Code: "on_the_moon", Label: "on_the_moon", Severity: enums.SeverityNeutral}, view)
}

func TestSeverityBuckets(t *testing.T) {
	assert.Equal(t, enums.SeverityPending, Severity("PENDING_PAYMENT"))
	assert.Equal(t, enums.SeveritySuccess, Severity("delivered"))
	assert.Equal(t, enums.SeverityDanger, Severity("CANCELLED"))
	assert.Equal(t, enums.SeverityDanger, Severity("QUALITY_CHECK_FAILED"))
}

func TestDescribeCanonicalizes(t *testing.T) {
	view := Describe("shipped")
	assert.Equal(t, "SHIPPED", view.Code)
	assert.Equal(t, "Shipped", view.Label)
}

func TestVocabularyCoversEveryStatus(t *testing.T) {
	views := Vocabulary()
	assert.Len(t, views, len(enums.SuborderStatuses()))
	for _, view := range views {
		assert.NotEqual(t, view.Code, view.Label, "status %s has no label", view.Code)
		assert.NotEqual(t, enums.SeverityNeutral, view.Severity, "status %s has no severity", view.Code)
	}
}
