package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secretoheladeria/heladeria-backend/internal/promotions"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
)

// UncategorizedLabel names the group of products without a category.
const UncategorizedLabel = "Sin categoría"

type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
}

// ProductDTO is a catalog product priced for the current day.
type ProductDTO struct {
	ID             uuid.UUID            `json:"id"`
	Name           string               `json:"name"`
	Description    *string              `json:"description,omitempty"`
	CategoryID     *uuid.UUID           `json:"category_id,omitempty"`
	CategoryName   *string              `json:"category_name,omitempty"`
	Price          decimal.Decimal      `json:"price"`
	EffectivePrice decimal.Decimal      `json:"effective_price"`
	Discounted     bool                 `json:"discounted"`
	Stock          int                  `json:"stock"`
	ExpiresOn      *string              `json:"expires_on,omitempty"`
	NearExpiry     bool                 `json:"near_expiry"`
	Promotions     []promotions.Summary `json:"promotions"`
}

// CategoryGroup lists the in-stock products of one category.
type CategoryGroup struct {
	Category *CategoryDTO `json:"category,omitempty"`
	Label    string       `json:"label"`
	Products []ProductDTO `json:"products"`
}

type CreateCategoryInput struct {
	Name        string
	Description *string
}

type CreateProductInput struct {
	Name        string
	Description *string
	CategoryID  *uuid.UUID
	Price       decimal.Decimal
	Stock       int
	ExpiresOn   *time.Time
}

// UpdateProductInput carries optional changes; nil fields are left untouched.
type UpdateProductInput struct {
	Name          *string
	Description   *string
	CategoryID    *uuid.UUID
	ClearCategory bool
	Price         *decimal.Decimal
	Stock         *int
	ExpiresOn     *time.Time
	ClearExpiry   bool
}

func categoryFromModel(c *models.Category) *CategoryDTO {
	if c == nil {
		return nil
	}
	return &CategoryDTO{ID: c.ID, Name: c.Name, Description: c.Description}
}

func productFromModel(p models.Product, book *promotions.Pricebook, horizonDays int) ProductDTO {
	quote := book.Quote(p)
	dto := ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		CategoryID:     p.CategoryID,
		Price:          quote.ListPrice,
		EffectivePrice: quote.UnitPrice,
		Discounted:     quote.Discounted(),
		Stock:          p.Stock,
		NearExpiry:     NearExpiry(p, book.Day(), horizonDays),
		Promotions:     []promotions.Summary{},
	}
	if p.Category != nil {
		name := p.Category.Name
		dto.CategoryName = &name
	}
	if p.ExpiresOn != nil {
		formatted := p.ExpiresOn.Format(time.DateOnly)
		dto.ExpiresOn = &formatted
	}
	for _, promo := range book.EffectiveFor(p.ID) {
		dto.Promotions = append(dto.Promotions, promotions.SummaryFromModel(promo))
	}
	return dto
}
