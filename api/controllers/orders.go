package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/secretoheladeria/heladeria-backend/api/responses"
	"github.com/secretoheladeria/heladeria-backend/api/validators"
	"github.com/secretoheladeria/heladeria-backend/internal/sales"
	"github.com/secretoheladeria/heladeria-backend/pkg/logger"
	"github.com/secretoheladeria/heladeria-backend/pkg/pagination"
)

// OrderHistory pages through a user's past sales.
type OrderHistory interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[sales.SaleDTO], error)
}

func OrdersList(svc OrderHistory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
