package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/internal/promotions"
	"github.com/secretoheladeria/heladeria-backend/pkg/dates"
	"github.com/secretoheladeria/heladeria-backend/pkg/db"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/dbtest"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
)

var today = dbtest.Day(2026, time.October, 18)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       db.FromGorm(conn),
		Resolver: promotions.NewResolver(promotions.NewRepository(conn)),
		Calendar: dates.Fixed(today),
	})
	require.NoError(t, err)
	return svc, conn
}

func TestListCatalogGroupsInStockProducts(t *testing.T) {
	svc, conn := newTestService(t)
	cremosos := dbtest.MustCategory(t, conn, "Cremosos")
	frutales := dbtest.MustCategory(t, conn, "Frutales")

	lucuma := dbtest.MustProduct(t, conn, "Lúcuma", "2500.00", 10, &cremosos.ID)
	dbtest.MustProduct(t, conn, "Chocolate", "2300.00", 0, &cremosos.ID)
	frutilla := dbtest.MustProduct(t, conn, "Frutilla", "2000.00", 4, &frutales.ID)
	dbtest.MustProduct(t, conn, "Barquillo", "500.00", 50, nil)

	dbtest.MustPercentagePromotion(t, conn, "20", today, today, frutilla)

	groups, err := svc.ListCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 3)

	require.Equal(t, "Cremosos", groups[0].Label)
	require.Len(t, groups[0].Products, 1)
	require.Equal(t, lucuma.ID, groups[0].Products[0].ID)
	require.False(t, groups[0].Products[0].Discounted)

	require.Equal(t, "Frutales", groups[1].Label)
	product := groups[1].Products[0]
	require.True(t, product.Discounted)
	require.Equal(t, "1600", product.EffectivePrice.String())
	require.Len(t, product.Promotions, 1)

	require.Equal(t, UncategorizedLabel, groups[2].Label)
	require.Nil(t, groups[2].Category)
}

func TestCreateAndUpdateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, CreateCategoryInput{Name: "Paletas"})
	require.NoError(t, err)

	expires := today.AddDate(0, 0, 3)
	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:       "Paleta de mango",
		CategoryID: &category.ID,
		Price:      decimal.RequireFromString("1200.50"),
		Stock:      12,
		ExpiresOn:  &expires,
	})
	require.NoError(t, err)
	require.True(t, created.NearExpiry)
	require.Equal(t, "2026-10-21", *created.ExpiresOn)
	require.Equal(t, "Paletas", *created.CategoryName)

	stock := 3
	price := decimal.RequireFromString("1000")
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{
		Stock:       &stock,
		Price:       &price,
		ClearExpiry: true,
	})
	require.NoError(t, err)
	require.Equal(t, 3, updated.Stock)
	require.True(t, updated.Price.Equal(price))
	require.Nil(t, updated.ExpiresOn)
	require.False(t, updated.NearExpiry)

	negative := -1
	_, err = svc.UpdateProduct(ctx, created.ID, UpdateProductInput{Stock: &negative})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateProduct(ctx, uuid.New(), UpdateProductInput{Stock: &stock})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	missing := uuid.New()

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: "", Price: decimal.NewFromInt(-1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(context.Background(), CreateProductInput{Name: "x", Price: decimal.NewFromInt(1), CategoryID: &missing})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateCategoryDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateCategory(context.Background(), CreateCategoryInput{Name: "Sorbetes"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(context.Background(), CreateCategoryInput{Name: "Sorbetes"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestDeleteProduct(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	unsold := dbtest.MustProduct(t, conn, "Menta", "1800.00", 3, nil)
	dbtest.MustPercentagePromotion(t, conn, "10", today, today, unsold)
	require.NoError(t, svc.DeleteProduct(ctx, unsold.ID))
	_, err := svc.GetProduct(ctx, unsold.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	sold := dbtest.MustProduct(t, conn, "Vainilla", "1800.00", 3, nil)
	sale := &models.Sale{Total: decimal.RequireFromString("1800")}
	require.NoError(t, conn.Create(sale).Error)
	require.NoError(t, conn.Create(&models.SaleLine{
		SaleID: sale.ID, ProductID: sold.ID, Quantity: 1,
		ListPrice: sold.Price, UnitPrice: sold.Price, Subtotal: sold.Price,
	}).Error)

	err = svc.DeleteProduct(ctx, sold.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	err = svc.DeleteProduct(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
