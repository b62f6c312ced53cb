package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
)

// Promotion discounts either a set of products or, when Products is empty,
// the whole store between StartDate and EndDate inclusive.
type Promotion struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name          string              `gorm:"column:name;not null"`
	Description   *string             `gorm:"column:description"`
	Type          enums.PromotionType `gorm:"column:type;type:text;not null"`
	DiscountValue *decimal.Decimal    `gorm:"column:discount_value;type:numeric(10,2)"`
	StartDate     time.Time           `gorm:"column:start_date;type:date;not null"`
	EndDate       time.Time           `gorm:"column:end_date;type:date;not null;index"`
	Active        bool                `gorm:"column:active;not null"`
	Products      []Product           `gorm:"many2many:promotion_products;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Promotion) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
