package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const envelopeVersion = 1

// Type names a checkout lifecycle event.
type Type string

const (
	TypeOrderPlaced          Type = "order.placed"
	TypeOrderCancelled       Type = "order.cancelled"
	TypePaymentSucceeded     Type = "payment.succeeded"
	TypePaymentFailed        Type = "payment.failed"
	TypeSuborderStatusChange Type = "suborder.status_changed"
)

// ActorRef identifies who caused the event.
type ActorRef struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// Envelope is the stable wire shape of every published event.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  Type            `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Event is what callers hand to a Publisher; Key selects the partition.
type Event struct {
	Type  Type
	Key   string
	Actor *ActorRef
	Data  any
}

func newEnvelope(evt Event, now time.Time) (Envelope, error) {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", evt.Type, err)
	}
	return Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		EventType:  evt.Type,
		OccurredAt: now.UTC(),
		Actor:      evt.Actor,
		Data:       data,
	}, nil
}

type OrderPlaced struct {
	OrderID       int64           `json:"orderId"`
	PaymentMethod string          `json:"paymentMethod"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	HubID         int64           `json:"hubId,omitempty"`
}

type OrderCancelled struct {
	OrderID int64  `json:"orderId"`
	Reason  string `json:"reason,omitempty"`
}

type PaymentOutcome struct {
	OrderID           int64           `json:"orderId"`
	AttemptID         string          `json:"attemptId"`
	CheckoutRequestID string          `json:"checkoutRequestId,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Reason            string          `json:"reason,omitempty"`
	Message           string          `json:"message,omitempty"`
}

type SuborderStatusChanged struct {
	SuborderID int64  `json:"suborderId"`
	From       string `json:"from"`
	To         string `json:"to"`
}
