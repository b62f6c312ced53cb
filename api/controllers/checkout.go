package controllers

import (
	"net/http"

	"github.com/secretoheladeria/heladeria-backend/api/responses"
	"github.com/secretoheladeria/heladeria-backend/internal/cart"
	"github.com/secretoheladeria/heladeria-backend/internal/checkout"
	"github.com/secretoheladeria/heladeria-backend/pkg/logger"
)

// CheckoutFinalize turns the caller's cart into a sale. On failure the cart is
// left untouched and remains available from the cart endpoint.
func CheckoutFinalize(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := svc.FinalizeOrder(r.Context(), cart.ScopeForUser(userID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}
