package promotions

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
)

var today = time.Date(2026, time.October, 18, 0, 0, 0, 0, time.UTC)

func pct(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func percentagePromo(value string, start, end time.Time, products ...models.Product) models.Promotion {
	return models.Promotion{
		ID:            uuid.New(),
		Name:          value + "% off",
		Type:          enums.PromotionTypePercentage,
		DiscountValue: pct(value),
		StartDate:     start,
		EndDate:       end,
		Active:        true,
		Products:      products,
	}
}

func product(price string) models.Product {
	return models.Product{ID: uuid.New(), Name: "Lucuma", Price: decimal.RequireFromString(price), Stock: 10}
}

func TestIsEffectiveOnBoundaries(t *testing.T) {
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	require.True(t, IsEffectiveOn(percentagePromo("10", today, today), today))
	require.True(t, IsEffectiveOn(percentagePromo("10", yesterday, tomorrow), today))
	require.False(t, IsEffectiveOn(percentagePromo("10", yesterday, yesterday), today))
	require.False(t, IsEffectiveOn(percentagePromo("10", tomorrow, tomorrow), today))

	inactive := percentagePromo("10", today, today)
	inactive.Active = false
	require.False(t, IsEffectiveOn(inactive, today))
}

func TestAppliesToStoreWideAndScoped(t *testing.T) {
	a, b := product("10.00"), product("12.00")

	require.True(t, AppliesTo(percentagePromo("10", today, today), a.ID))

	scoped := percentagePromo("10", today, today, a)
	require.True(t, AppliesTo(scoped, a.ID))
	require.False(t, AppliesTo(scoped, b.ID))
}

func TestApplyPercentageRoundsToCents(t *testing.T) {
	require.Equal(t, "80", ApplyPercentage(decimal.RequireFromString("100"), decimal.NewFromInt(20)).String())
	require.Equal(t, "2.66", ApplyPercentage(decimal.RequireFromString("3.33"), decimal.NewFromInt(20)).String())
	require.Equal(t, "0", ApplyPercentage(decimal.RequireFromString("4.50"), decimal.NewFromInt(100)).String())
}

func TestPricebookLargestPercentageWins(t *testing.T) {
	item := product("100.00")
	ten := percentagePromo("10", today, today, item)
	twenty := percentagePromo("20", today, today)

	quote := NewPricebook(today, []models.Promotion{ten, twenty}).Quote(item)

	require.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(80)), quote.UnitPrice.String())
	require.True(t, quote.ListPrice.Equal(decimal.NewFromInt(100)))
	require.True(t, quote.Discounted())
	require.Equal(t, twenty.ID, *quote.PromotionID)
	require.True(t, quote.Percentage.Equal(decimal.NewFromInt(20)))
}

func TestPricebookTieKeepsFirstPromotion(t *testing.T) {
	item := product("10.00")
	first := percentagePromo("15", today, today)
	second := percentagePromo("15", today, today, item)

	quote := NewPricebook(today, []models.Promotion{first, second}).Quote(item)
	require.Equal(t, first.ID, *quote.PromotionID)
}

func TestPricebookIgnoresNonPercentageAndExpired(t *testing.T) {
	item := product("10.00")
	fixed := models.Promotion{
		ID: uuid.New(), Type: enums.PromotionTypeFixedAmount, DiscountValue: pct("3"),
		StartDate: today, EndDate: today, Active: true,
	}
	twoForOne := models.Promotion{
		ID: uuid.New(), Type: enums.PromotionTypeBuyTwoPayOne,
		StartDate: today, EndDate: today, Active: true,
	}
	expired := percentagePromo("50", today.AddDate(0, 0, -5), today.AddDate(0, 0, -1))

	book := NewPricebook(today, []models.Promotion{fixed, twoForOne, expired})
	quote := book.Quote(item)

	require.False(t, quote.Discounted())
	require.True(t, quote.UnitPrice.Equal(item.Price))
	require.Len(t, book.Promotions(), 2)
	require.Len(t, book.EffectiveFor(item.ID), 2)
}
