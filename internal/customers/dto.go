package customers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
)

// CustomerDTO is the API representation of a customer profile.
type CustomerDTO struct {
	ID             uuid.UUID  `json:"id"`
	UserID         *uuid.UUID `json:"user_id,omitempty"`
	Name           string     `json:"name"`
	RUT            string     `json:"rut"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email"`
	Address        string     `json:"address"`
	RegisteredOn   string     `json:"registered_on"`
	LastPurchaseOn *string    `json:"last_purchase_on,omitempty"`
}

// ReportRow adds purchase aggregates to a customer profile.
type ReportRow struct {
	CustomerDTO
	SalesCount int64           `json:"sales_count"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// CreateInput holds the profile data captured at registration.
type CreateInput struct {
	UserID  *uuid.UUID
	Name    string
	RUT     string
	Phone   string
	Email   string
	Address string
}

func FromModel(c models.Customer) CustomerDTO {
	dto := CustomerDTO{
		ID:           c.ID,
		UserID:       c.UserID,
		Name:         c.Name,
		RUT:          c.RUT,
		Phone:        c.Phone,
		Email:        c.Email,
		Address:      c.Address,
		RegisteredOn: c.RegisteredOn.Format(time.DateOnly),
	}
	if c.LastPurchaseOn != nil {
		formatted := c.LastPurchaseOn.Format(time.DateOnly)
		dto.LastPurchaseOn = &formatted
	}
	return dto
}
