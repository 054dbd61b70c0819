package enums

// PaymentAttemptStatus is the gateway-side state of one STK push attempt.
type PaymentAttemptStatus string

const (
	PaymentAttemptIdle    PaymentAttemptStatus = "idle"
	PaymentAttemptPending PaymentAttemptStatus = "pending"
	PaymentAttemptSuccess PaymentAttemptStatus = "success"
	PaymentAttemptFailed  PaymentAttemptStatus = "failed"
)

// String implements fmt.Stringer.
func (p PaymentAttemptStatus) String() string {
	return string(p)
}

// IsTerminal reports whether the attempt can no longer change state.
func (p PaymentAttemptStatus) IsTerminal() bool {
	return p == PaymentAttemptSuccess || p == PaymentAttemptFailed
}

// PaymentFailureReason distinguishes why an attempt ended in failed.
type PaymentFailureReason string

const (
	PaymentFailureRejected      PaymentFailureReason = "rejected"
	PaymentFailureGatewayFailed PaymentFailureReason = "gateway_failed"
	PaymentFailureTimeout       PaymentFailureReason = "timeout"
)

// String implements fmt.Stringer.
func (p PaymentFailureReason) String() string {
	return string(p)
}
