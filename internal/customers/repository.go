package customers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
)

// Repository persists customer profiles.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByUserID loads the profile linked to a login identity.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Count(&count).Error
	return count, err
}

// TouchLastPurchase records day as the customer's most recent purchase.
func (r *Repository) TouchLastPurchase(ctx context.Context, id uuid.UUID, day time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		UpdateColumn("last_purchase_on", day).Error
}

type reportRow struct {
	models.Customer
	SalesCount int64
	TotalSpent decimal.NullDecimal
}

// ListWithTotals returns every customer with their sales count and spend, by name.
func (r *Repository) ListWithTotals(ctx context.Context) ([]ReportRow, error) {
	var rows []reportRow
	err := r.db.WithContext(ctx).
		Table("customers").
		Select("customers.*, COUNT(sales.id) AS sales_count, SUM(sales.total) AS total_spent").
		Joins("LEFT JOIN sales ON sales.customer_id = customers.id").
		Group("customers.id").
		Order("customers.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ReportRow, 0, len(rows))
	for _, row := range rows {
		spent := decimal.Zero
		if row.TotalSpent.Valid {
			spent = row.TotalSpent.Decimal.Round(2)
		}
		out = append(out, ReportRow{
			CustomerDTO: FromModel(row.Customer),
			SalesCount:  row.SalesCount,
			TotalSpent:  spent,
		})
	}
	return out, nil
}
