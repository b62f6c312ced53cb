package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale is a finalized order. Total always equals the sum of its line subtotals.
type Sale struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID *uuid.UUID      `gorm:"column:customer_id;type:uuid;index"`
	Customer   *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:SET NULL"`
	Total      decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	Lines      []SaleLine      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime;index"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// SaleLine snapshots the price charged for one product within a sale.
type SaleLine struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Product     *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	PromotionID *uuid.UUID      `gorm:"column:promotion_id;type:uuid"`
	Position    int             `gorm:"column:position;not null;default:0"`
	Quantity    int             `gorm:"column:quantity;not null;check:chk_sale_lines_quantity_positive,quantity > 0"`
	ListPrice   decimal.Decimal `gorm:"column:list_price;type:numeric(10,2);not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (l *SaleLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
