// Package dbtest opens throwaway sqlite databases with the full schema and
// seeds common fixtures.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
)

// Open returns a migrated in-memory database unique to the test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:heladeria_%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Money parses a decimal literal, failing the test on bad input.
func Money(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse money %q: %v", value, err)
	}
	return d
}

// Day builds a normalized calendar day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func MustCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

// MustProduct seeds a product; categoryID may be nil.
func MustProduct(t *testing.T, db *gorm.DB, name, price string, stock int, categoryID *uuid.UUID) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:       name,
		Price:      Money(t, price),
		Stock:      stock,
		CategoryID: categoryID,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func MustUser(t *testing.T, db *gorm.DB, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("user_%s@heladeria.test", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// MustCustomer seeds a customer profile linked to userID when provided.
func MustCustomer(t *testing.T, db *gorm.DB, userID *uuid.UUID) *models.Customer {
	t.Helper()
	suffix := uuid.NewString()[:8]
	customer := &models.Customer{
		UserID:       userID,
		Name:         "Cliente " + suffix,
		RUT:          "11111111-" + suffix,
		Phone:        "+56900000000",
		Email:        "cliente_" + suffix + "@heladeria.test",
		Address:      "Av. Siempre Viva 742",
		RegisteredOn: Day(2026, time.January, 1),
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return customer
}

// MustPercentagePromotion seeds an active percentage promotion. No products means store-wide.
func MustPercentagePromotion(t *testing.T, db *gorm.DB, pct string, start, end time.Time, products ...*models.Product) *models.Promotion {
	t.Helper()
	value := Money(t, pct)
	return MustPromotion(t, db, &models.Promotion{
		Name:          "Promo " + pct + "%",
		Type:          enums.PromotionTypePercentage,
		DiscountValue: &value,
		StartDate:     start,
		EndDate:       end,
		Active:        true,
	}, products...)
}

func MustPromotion(t *testing.T, db *gorm.DB, promo *models.Promotion, products ...*models.Product) *models.Promotion {
	t.Helper()
	for _, p := range products {
		promo.Products = append(promo.Products, *p)
	}
	if err := db.Omit("Products.*").Create(promo).Error; err != nil {
		t.Fatalf("create promotion: %v", err)
	}
	return promo
}
