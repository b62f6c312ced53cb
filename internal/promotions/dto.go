package promotions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
)

// CreateInput holds the validated payload to create a promotion.
type CreateInput struct {
	Name          string
	Description   *string
	Type          enums.PromotionType
	DiscountValue *decimal.Decimal
	StartDate     time.Time
	EndDate       time.Time
	ProductIDs    []uuid.UUID
	Active        *bool
}

// PromotionDTO is the API representation of a promotion.
type PromotionDTO struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Description   *string             `json:"description,omitempty"`
	Type          enums.PromotionType `json:"type"`
	DiscountValue *decimal.Decimal    `json:"discount_value,omitempty"`
	StartDate     string              `json:"start_date"`
	EndDate       string              `json:"end_date"`
	Active        bool                `json:"active"`
	StoreWide     bool                `json:"store_wide"`
	ProductIDs    []uuid.UUID         `json:"product_ids"`
}

// Summary is the compact form shown next to a catalog product.
type Summary struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	Type          enums.PromotionType `json:"type"`
	DiscountValue *decimal.Decimal    `json:"discount_value,omitempty"`
	EndDate       string              `json:"end_date"`
}

// FromModel maps a promotion into its DTO.
func FromModel(p models.Promotion) PromotionDTO {
	ids := make([]uuid.UUID, 0, len(p.Products))
	for _, product := range p.Products {
		ids = append(ids, product.ID)
	}
	return PromotionDTO{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Type:          p.Type,
		DiscountValue: p.DiscountValue,
		StartDate:     p.StartDate.Format(time.DateOnly),
		EndDate:       p.EndDate.Format(time.DateOnly),
		Active:        p.Active,
		StoreWide:     len(p.Products) == 0,
		ProductIDs:    ids,
	}
}

// SummaryFromModel maps a promotion into its compact form.
func SummaryFromModel(p models.Promotion) Summary {
	return Summary{
		ID:            p.ID,
		Name:          p.Name,
		Type:          p.Type,
		DiscountValue: p.DiscountValue,
		EndDate:       p.EndDate.Format(time.DateOnly),
	}
}
