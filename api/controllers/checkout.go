package controllers

import (
	"net/http"
	"strings"

	"github.com/markethub/storefront-gateway/api/middleware"
	"github.com/markethub/storefront-gateway/api/responses"
	"github.com/markethub/storefront-gateway/api/validators"
	"github.com/markethub/storefront-gateway/internal/checkout"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/logger"
)

type checkoutRequest struct {
	PaymentMethod   string `json:"payment_method" validate:"required"`
	MpesaPhone      string `json:"mpesa_phone_number" validate:"max=20"`
	PhoneNumber     string `json:"phone_number" validate:"max=20"`
	HubID           int64  `json:"hub_id" validate:"gte=0"`
	DeliveryAddress string `json:"delivery_address" validate:"max=500"`
	DeliveryCity    string `json:"delivery_city" validate:"max=120"`
}

func (req checkoutRequest) phone() string {
	if p := strings.TrimSpace(req.MpesaPhone); p != "" {
		return p
	}
	return strings.TrimSpace(req.PhoneNumber)
}

// Checkout places an order from the caller's cart and, for M-Pesa, starts the STK push.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), actor, checkout.Input{
			PaymentMethod:   payload.PaymentMethod,
			Phone:           payload.phone(),
			HubID:           payload.HubID,
			DeliveryAddress: validators.SanitizeString(payload.DeliveryAddress, 500),
			DeliveryCity:    validators.SanitizeString(payload.DeliveryCity, 120),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessMessage(w, http.StatusCreated, result, result.Message)
	}
}
