package promotions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// IsEffectiveOn reports whether promo applies on day (start and end inclusive).
// day must be a normalized calendar day.
func IsEffectiveOn(promo models.Promotion, day time.Time) bool {
	if !promo.Active {
		return false
	}
	return !day.Before(promo.StartDate) && !day.After(promo.EndDate)
}

// AppliesTo reports whether promo covers productID. A promotion without
// products covers the whole store.
func AppliesTo(promo models.Promotion, productID uuid.UUID) bool {
	if len(promo.Products) == 0 {
		return true
	}
	for _, p := range promo.Products {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// ApplyPercentage returns list discounted by pct percent, rounded half-up to cents.
func ApplyPercentage(list, pct decimal.Decimal) decimal.Decimal {
	factor := hundred.Sub(pct).Div(hundred)
	return list.Mul(factor).Round(2)
}

// Quote is the price a product sells for on a given day.
type Quote struct {
	ListPrice   decimal.Decimal
	UnitPrice   decimal.Decimal
	PromotionID *uuid.UUID
	Percentage  *decimal.Decimal
}

// Discounted reports whether a promotion lowered the price.
func (q Quote) Discounted() bool {
	return q.PromotionID != nil
}

// Pricebook answers price quotes for a single day from a preloaded set of
// promotions. It performs no I/O.
type Pricebook struct {
	day    time.Time
	promos []models.Promotion
}

// NewPricebook keeps only the promotions effective on day.
func NewPricebook(day time.Time, candidates []models.Promotion) *Pricebook {
	effective := make([]models.Promotion, 0, len(candidates))
	for _, promo := range candidates {
		if IsEffectiveOn(promo, day) {
			effective = append(effective, promo)
		}
	}
	return &Pricebook{day: day, promos: effective}
}

// Day is the calendar day the pricebook was built for.
func (b *Pricebook) Day() time.Time {
	return b.day
}

// Quote prices one product. Only percentage promotions affect the charged
// price; the single largest applicable percentage wins and discounts never stack.
func (b *Pricebook) Quote(product models.Product) Quote {
	quote := Quote{ListPrice: product.Price, UnitPrice: product.Price}

	var best *models.Promotion
	for i := range b.promos {
		promo := &b.promos[i]
		if promo.Type != enums.PromotionTypePercentage || promo.DiscountValue == nil {
			continue
		}
		if !AppliesTo(*promo, product.ID) {
			continue
		}
		if best == nil || promo.DiscountValue.GreaterThan(*best.DiscountValue) {
			best = promo
		}
	}
	if best == nil {
		return quote
	}

	id := best.ID
	pct := *best.DiscountValue
	quote.UnitPrice = ApplyPercentage(product.Price, pct)
	quote.PromotionID = &id
	quote.Percentage = &pct
	return quote
}

// EffectiveFor lists every promotion of any type covering productID on the pricebook day.
func (b *Pricebook) EffectiveFor(productID uuid.UUID) []models.Promotion {
	var out []models.Promotion
	for _, promo := range b.promos {
		if AppliesTo(promo, productID) {
			out = append(out, promo)
		}
	}
	return out
}

// Promotions returns the effective promotions held by the pricebook.
func (b *Pricebook) Promotions() []models.Promotion {
	return b.promos
}
