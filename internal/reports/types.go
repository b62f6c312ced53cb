package reports

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/secretoheladeria/heladeria-backend/internal/promotions"
	"github.com/secretoheladeria/heladeria-backend/internal/sales"
)

// Dashboard is the marketing overview.
type Dashboard struct {
	GeneratedOn          string                    `json:"generated_on"`
	TotalCustomers       int64                     `json:"total_customers"`
	TotalSales           int64                     `json:"total_sales"`
	TotalProducts        int64                     `json:"total_products"`
	ActivePromotions     int64                     `json:"active_promotions"`
	Revenue              decimal.Decimal           `json:"revenue"`
	RecentSales          []sales.SaleDTO           `json:"recent_sales"`
	TopSellers           []TopSellerDTO            `json:"top_sellers"`
	ExpiringProducts     []ExpiringProductDTO      `json:"expiring_products"`
	UpcomingPromotions   []promotions.PromotionDTO `json:"upcoming_promotions"`
	PromotionsEndingSoon []promotions.Summary      `json:"promotions_ending_soon"`
}

type TopSellerDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// ExpiringProductDTO is a product close to (or past) its expiry date.
type ExpiringProductDTO struct {
	ProductID    uuid.UUID `json:"product_id"`
	Name         string    `json:"name"`
	CategoryName *string   `json:"category_name,omitempty"`
	Stock        int       `json:"stock"`
	ExpiresOn    string    `json:"expires_on"`
	DaysLeft     int       `json:"days_left"`
	Expired      bool      `json:"expired"`
}
