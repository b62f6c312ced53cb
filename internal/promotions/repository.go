package promotions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
)

type promotionProduct struct {
	PromotionID uuid.UUID `gorm:"column:promotion_id;type:uuid;primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
}

func (promotionProduct) TableName() string { return "promotion_products" }

// Repository persists promotions and their product sets.
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

// Create inserts the promotion and links it to productIDs.
func (r *Repository) Create(ctx context.Context, promo *models.Promotion, productIDs []uuid.UUID) error {
	if err := r.db.WithContext(ctx).Omit("Products").Create(promo).Error; err != nil {
		return err
	}
	if len(productIDs) == 0 {
		return nil
	}
	links := make([]promotionProduct, 0, len(productIDs))
	for _, id := range productIDs {
		links = append(links, promotionProduct{PromotionID: promo.ID, ProductID: id})
	}
	return r.db.WithContext(ctx).Create(&links).Error
}

// CountProducts reports how many of ids exist in the catalog.
func (r *Repository) CountProducts(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

// FindByID loads a promotion with its products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promo models.Promotion
	if err := r.db.WithContext(ctx).Preload("Products").First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

// List returns every promotion newest first.
func (r *Repository) List(ctx context.Context) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.db.WithContext(ctx).
		Preload("Products").
		Order("start_date DESC").
		Order("created_at DESC").
		Find(&promos).Error
	return promos, err
}

// ListCandidates returns active promotions whose window has not closed before day.
func (r *Repository) ListCandidates(ctx context.Context, day time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("active = ?", true).
		Where("end_date >= ?", day).
		Order("created_at ASC").
		Find(&promos).Error
	return promos, err
}

// SetActive toggles the promotion's active flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Promotion{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountEffective counts active promotions running on day.
func (r *Repository) CountEffective(ctx context.Context, day time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Promotion{}).
		Where("active = ? AND start_date <= ? AND end_date >= ?", true, day, day).
		Count(&count).Error
	return count, err
}

// ListUpcoming returns active promotions starting after day, soonest first.
func (r *Repository) ListUpcoming(ctx context.Context, day time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("active = ? AND start_date > ?", true, day).
		Order("start_date ASC").
		Find(&promos).Error
	return promos, err
}

// ListExpiringBetween returns active promotions whose last day falls within [from, to].
func (r *Repository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.db.WithContext(ctx).
		Where("active = ? AND end_date >= ? AND end_date <= ?", true, from, to).
		Order("end_date ASC").
		Find(&promos).Error
	return promos, err
}
