package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/pagination"
)

// Repository persists sales and performs the stock mutations of finalization.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a sales repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// LockProducts loads the products in id order, taking row locks where the
// database supports them.
func (r *Repository) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	q := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC")
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *Repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit("Lines", "Customer").Create(sale).Error
}

func (r *Repository) CreateLines(ctx context.Context, lines []models.SaleLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Product").Create(&lines).Error
}

// DecrementStock subtracts qty only while enough stock remains. It reports
// false when the guard rejected the update.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		"UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?",
		qty, time.Now().UTC(), productID, qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SumSubtotals aggregates the stored line subtotals of a sale.
func (r *Repository) SumSubtotals(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.SaleLine{}).
		Select("SUM(subtotal)").
		Where("sale_id = ?", saleID).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}

func (r *Repository) UpdateTotal(ctx context.Context, saleID uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ?", saleID).
		UpdateColumn("total", total).Error
}

// FindByID loads a sale with its lines and their products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Lines", orderLines).
		Preload("Lines.Product").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListByCustomer returns up to limit+1 sales of the customer, newest first,
// strictly after cursor when given.
func (r *Repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Sale, error) {
	q := r.db.WithContext(ctx).
		Preload("Lines", orderLines).
		Preload("Lines.Product").
		Where("customer_id = ?", customerID)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var sales []models.Sale
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&sales).Error
	return sales, err
}

// ListRecent returns the n most recent sales with their customer and lines.
func (r *Repository) ListRecent(ctx context.Context, n int) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Lines", orderLines).
		Preload("Lines.Product").
		Order("created_at DESC").
		Order("id DESC").
		Limit(n).
		Find(&sales).Error
	return sales, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Sale{}).Count(&count).Error
	return count, err
}

// Revenue sums every sale total.
func (r *Repository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := r.db.WithContext(ctx).Model(&models.Sale{}).Select("SUM(total)").Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}

// TopSeller aggregates units sold per product.
type TopSeller struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int64
	Revenue   decimal.Decimal
}

type topSellerRow struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int64
	Revenue   decimal.NullDecimal
}

// TopSellers ranks products by units sold, ties broken by name.
func (r *Repository) TopSellers(ctx context.Context, n int) ([]TopSeller, error) {
	var rows []topSellerRow
	err := r.db.WithContext(ctx).
		Table("sale_lines").
		Select("sale_lines.product_id AS product_id, products.name AS name, SUM(sale_lines.quantity) AS quantity, SUM(sale_lines.subtotal) AS revenue").
		Joins("JOIN products ON products.id = sale_lines.product_id").
		Group("sale_lines.product_id, products.name").
		Order("quantity DESC").
		Order("products.name ASC").
		Limit(n).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]TopSeller, 0, len(rows))
	for _, row := range rows {
		out = append(out, TopSeller{
			ProductID: row.ProductID,
			Name:      row.Name,
			Quantity:  row.Quantity,
			Revenue:   row.Revenue.Decimal.Round(2),
		})
	}
	return out, nil
}

func orderLines(db *gorm.DB) *gorm.DB {
	return db.Order("sale_lines.position ASC")
}
