package enums

import "testing"

func TestParseSuborderStatusIsCaseInsensitive(t *testing.T) {
	for _, raw := range []string{"shipped", "SHIPPED", " Shipped "} {
		got, err := ParseSuborderStatus(raw)
		if err != nil {
			t.Fatalf("ParseSuborderStatus(%q) returned error: %v", raw, err)
		}
		if got != SuborderStatusShipped {
			t.Fatalf("ParseSuborderStatus(%q) = %q", raw, got)
		}
	}
	if _, err := ParseSuborderStatus("teleported"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestSuborderStatusesAreValid(t *testing.T) {
	for _, status := range SuborderStatuses() {
		if !status.IsValid() {
			t.Fatalf("%q listed but not valid", status)
		}
	}
}

func TestParseGatewayPaymentStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    GatewayPaymentStatus
		failure bool
	}{
		{raw: "completed", want: GatewayPaymentCompleted},
		{raw: "FAILED", want: GatewayPaymentFailed, failure: true},
		{raw: "Cancelled", want: GatewayPaymentCancelled, failure: true},
		{raw: "PENDING", want: GatewayPaymentPending},
		{raw: "QUEUED", want: GatewayPaymentPending},
		{raw: "", want: GatewayPaymentPending},
	}
	for _, tt := range tests {
		got := ParseGatewayPaymentStatus(tt.raw)
		if got != tt.want {
			t.Fatalf("ParseGatewayPaymentStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
		if got.IsFailure() != tt.failure {
			t.Fatalf("%q IsFailure = %v", tt.raw, got.IsFailure())
		}
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if got, err := ParsePaymentMethod("mpesa_delivery"); err != nil || got != PaymentMethodMpesa {
		t.Fatalf("unexpected mpesa parse %q %v", got, err)
	}
	if got, err := ParsePaymentMethod("cash_on_delivery"); err != nil || got != PaymentMethodCash {
		t.Fatalf("unexpected cash parse %q %v", got, err)
	}
	if _, err := ParsePaymentMethod("card"); err == nil {
		t.Fatal("expected card to be rejected")
	}
}

func TestParseUserRole(t *testing.T) {
	if got, err := ParseUserRole(" Hub_Staff "); err != nil || got != UserRoleHubStaff {
		t.Fatalf("unexpected role parse %q %v", got, err)
	}
	if _, err := ParseUserRole("vendor"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestPaymentAttemptTerminal(t *testing.T) {
	if PaymentAttemptPending.IsTerminal() || PaymentAttemptIdle.IsTerminal() {
		t.Fatal("idle and pending are not terminal")
	}
	if !PaymentAttemptSuccess.IsTerminal() || !PaymentAttemptFailed.IsTerminal() {
		t.Fatal("success and failed are terminal")
	}
}
