package controllers

import (
	"net/http"
	"strings"

	"github.com/markethub/storefront-gateway/api/middleware"
	"github.com/markethub/storefront-gateway/api/responses"
	"github.com/markethub/storefront-gateway/api/validators"
	"github.com/markethub/storefront-gateway/internal/checkout"
	"github.com/markethub/storefront-gateway/internal/payments"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/logger"
)

// PaymentAttempts is the read/close side of the payment poller.
type PaymentAttempts interface {
	Get(orderID int64) (payments.Snapshot, bool)
	Close(orderID int64)
}

type retryPaymentRequest struct {
	MpesaPhone string `json:"mpesa_phone_number" validate:"max=20"`
}

// PaymentAttempt returns the caller's latest attempt for an order. The SPA polls this while
// the STK prompt is on the buyer's phone.
func PaymentAttempt(attempts PaymentAttempts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if attempts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment poller unavailable"))
			return
		}

		snap, err := ownedAttempt(r, attempts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

// PaymentRetry starts a fresh attempt for an unpaid M-Pesa order. An empty body reuses the
// phone number stored on the order.
func PaymentRetry(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload retryPaymentRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		snap, err := svc.RetryPayment(r.Context(), actor, orderID, strings.TrimSpace(payload.MpesaPhone))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessMessage(w, http.StatusAccepted, snap, snap.Message)
	}
}

// PaymentAttemptClose stops polling when the buyer leaves the payment screen.
func PaymentAttemptClose(attempts PaymentAttempts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if attempts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment poller unavailable"))
			return
		}

		snap, err := ownedAttempt(r, attempts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attempts.Close(snap.OrderID)
		responses.WriteSuccess(w, map[string]any{"order_id": snap.OrderID, "closed": true})
	}
}

// ownedAttempt hides attempts that belong to other buyers behind NOT_FOUND.
func ownedAttempt(r *http.Request, attempts PaymentAttempts) (payments.Snapshot, error) {
	actor, err := middleware.RequireActor(r.Context())
	if err != nil {
		return payments.Snapshot{}, err
	}
	orderID, err := validators.ParsePathID(r, "orderId")
	if err != nil {
		return payments.Snapshot{}, err
	}
	snap, ok := attempts.Get(orderID)
	if !ok || snap.OwnerID != actor.UserID {
		return payments.Snapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "no payment attempt for this order")
	}
	return snap, nil
}
