package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is the purchasing profile linked to a login identity.
type Customer struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID         *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex"`
	Name           string     `gorm:"column:name;not null"`
	RUT            string     `gorm:"column:rut;not null;uniqueIndex"`
	Phone          string     `gorm:"column:phone;not null"`
	Email          string     `gorm:"column:email;not null;index"`
	Address        string     `gorm:"column:address;not null"`
	RegisteredOn   time.Time  `gorm:"column:registered_on;type:date;not null"`
	LastPurchaseOn *time.Time `gorm:"column:last_purchase_on;type:date"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
