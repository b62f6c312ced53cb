package promotions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/secretoheladeria/heladeria-backend/pkg/db"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/dbtest"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *Repository, *models.Product) {
	t.Helper()
	conn := dbtest.Open(t)
	item := dbtest.MustProduct(t, conn, "Chirimoya", "100.00", 10, nil)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.FromGorm(conn))
	require.NoError(t, err)
	return svc, repo, item
}

func TestServiceCreateScopedPromotion(t *testing.T) {
	svc, _, item := newTestService(t)

	dto, err := svc.Create(context.Background(), CreateInput{
		Name:          "Semana de la chirimoya",
		Type:          enums.PromotionTypePercentage,
		DiscountValue: pct("25"),
		StartDate:     today,
		EndDate:       today.AddDate(0, 0, 6),
		ProductIDs:    []uuid.UUID{item.ID, item.ID},
	})
	require.NoError(t, err)
	require.True(t, dto.Active)
	require.False(t, dto.StoreWide)
	require.Equal(t, []uuid.UUID{item.ID}, dto.ProductIDs)
	require.Equal(t, "2026-10-18", dto.StartDate)
	require.Equal(t, "2026-10-24", dto.EndDate)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	inactive := false

	cases := map[string]CreateInput{
		"missing name":         {Type: enums.PromotionTypePercentage, DiscountValue: pct("10"), StartDate: today, EndDate: today},
		"unknown type":         {Name: "x", Type: "mystery", StartDate: today, EndDate: today},
		"percentage no value":  {Name: "x", Type: enums.PromotionTypePercentage, StartDate: today, EndDate: today},
		"percentage above 100": {Name: "x", Type: enums.PromotionTypePercentage, DiscountValue: pct("120"), StartDate: today, EndDate: today},
		"percentage below 1":   {Name: "x", Type: enums.PromotionTypePercentage, DiscountValue: pct("0.5"), StartDate: today, EndDate: today},
		"fixed non positive":   {Name: "x", Type: enums.PromotionTypeFixedAmount, DiscountValue: pct("0"), StartDate: today, EndDate: today},
		"end before start":     {Name: "x", Type: enums.PromotionTypeBuyTwoPayOne, StartDate: today, EndDate: today.AddDate(0, 0, -1), Active: &inactive},
		"unknown product":      {Name: "x", Type: enums.PromotionTypeBuyTwoPayOne, StartDate: today, EndDate: today, ProductIDs: []uuid.UUID{uuid.New()}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), input)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestServiceCreateBuyTwoPayOneDropsValue(t *testing.T) {
	svc, _, _ := newTestService(t)

	dto, err := svc.Create(context.Background(), CreateInput{
		Name:          "2x1",
		Type:          enums.PromotionTypeBuyTwoPayOne,
		DiscountValue: pct("50"),
		StartDate:     today,
		EndDate:       today,
	})
	require.NoError(t, err)
	require.Nil(t, dto.DiscountValue)
	require.True(t, dto.StoreWide)
}

func TestServiceSetActive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	dto, err := svc.Create(ctx, CreateInput{
		Name: "Otoño", Type: enums.PromotionTypePercentage, DiscountValue: pct("10"),
		StartDate: today, EndDate: today,
	})
	require.NoError(t, err)

	updated, err := svc.SetActive(ctx, dto.ID, false)
	require.NoError(t, err)
	require.False(t, updated.Active)

	_, err = svc.SetActive(ctx, uuid.New(), true)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestResolverEffectivePriceFromStorage(t *testing.T) {
	conn := dbtest.Open(t)
	item := dbtest.MustProduct(t, conn, "Frutilla", "100.00", 5, nil)
	yesterday := today.AddDate(0, 0, -1)

	dbtest.MustPercentagePromotion(t, conn, "10", today, today, item)
	dbtest.MustPercentagePromotion(t, conn, "20", today, today.AddDate(0, 0, 3))
	dbtest.MustPercentagePromotion(t, conn, "50", yesterday.AddDate(0, 0, -3), yesterday)
	dbtest.MustPromotion(t, conn, &models.Promotion{
		Name: "apagada", Type: enums.PromotionTypePercentage, DiscountValue: pct("90"),
		StartDate: today, EndDate: today, Active: false,
	})

	resolver := NewResolver(NewRepository(conn))
	quote, err := resolver.EffectivePrice(context.Background(), *item, today)
	require.NoError(t, err)
	require.Equal(t, "80", quote.UnitPrice.String())

	later, err := resolver.EffectivePrice(context.Background(), *item, today.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, "80", later.UnitPrice.String())

	gone, err := resolver.EffectivePrice(context.Background(), *item, today.Add(96*time.Hour))
	require.NoError(t, err)
	require.False(t, gone.Discounted())
}
