package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/internal/customers"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
	"github.com/secretoheladeria/heladeria-backend/pkg/pagination"
)

// History lists a customer's past orders.
type History struct {
	repo      *Repository
	customers *customers.Repository
}

func NewHistory(repo *Repository, customerRepo *customers.Repository) (*History, error) {
	if repo == nil || customerRepo == nil {
		return nil, fmt.Errorf("sales and customer repositories required")
	}
	return &History{repo: repo, customers: customerRepo}, nil
}

// ListForUser pages through the orders of the customer linked to userID, newest first.
func (h *History) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[SaleDTO], error) {
	customer, err := h.customers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := h.repo.ListByCustomer(ctx, customer.ID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	dtos := make([]SaleDTO, 0, len(rows))
	for _, s := range rows {
		dtos = append(dtos, FromModel(s))
	}
	page := pagination.Trim(dtos, limit, cursorOf)
	return &page, nil
}
