package controllers

import (
	"net/http"

	"github.com/markethub/storefront-gateway/api/responses"
	"github.com/markethub/storefront-gateway/internal/orders"
)

// Statuses publishes the suborder status vocabulary so clients render labels and badges
// from one table.
func Statuses() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, orders.Vocabulary())
	}
}
