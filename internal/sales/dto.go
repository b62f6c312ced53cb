package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/pagination"
)

// LineInput is one requested product and quantity.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// FinalizeInput is the cart content turned into a sale.
type FinalizeInput struct {
	CustomerID *uuid.UUID
	Lines      []LineInput
}

// SaleLineDTO is a priced line of a recorded sale.
type SaleLineDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	ListPrice   decimal.Decimal `json:"list_price"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	PromotionID *uuid.UUID      `json:"promotion_id,omitempty"`
}

// SaleDTO is the API representation of a sale.
type SaleDTO struct {
	ID           uuid.UUID       `json:"id"`
	CustomerID   *uuid.UUID      `json:"customer_id,omitempty"`
	CustomerName *string         `json:"customer_name,omitempty"`
	Total        decimal.Decimal `json:"total"`
	CreatedAt    time.Time       `json:"created_at"`
	Lines        []SaleLineDTO   `json:"lines"`
}

func FromModel(s models.Sale) SaleDTO {
	dto := SaleDTO{
		ID:         s.ID,
		CustomerID: s.CustomerID,
		Total:      s.Total,
		CreatedAt:  s.CreatedAt,
		Lines:      make([]SaleLineDTO, 0, len(s.Lines)),
	}
	if s.Customer != nil {
		name := s.Customer.Name
		dto.CustomerName = &name
	}
	for _, l := range s.Lines {
		line := SaleLineDTO{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			ListPrice:   l.ListPrice,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
			PromotionID: l.PromotionID,
		}
		if l.Product != nil {
			line.ProductName = l.Product.Name
		}
		dto.Lines = append(dto.Lines, line)
	}
	return dto
}

func cursorOf(s SaleDTO) pagination.Cursor {
	return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
}
