package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/secretoheladeria/heladeria-backend/internal/catalog"
	"github.com/secretoheladeria/heladeria-backend/internal/customers"
	"github.com/secretoheladeria/heladeria-backend/internal/promotions"
	"github.com/secretoheladeria/heladeria-backend/internal/sales"
	"github.com/secretoheladeria/heladeria-backend/pkg/config"
	"github.com/secretoheladeria/heladeria-backend/pkg/dates"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
)

// Service builds read-only reports over the shop data.
type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	CatalogAlerts(ctx context.Context) ([]ExpiringProductDTO, error)
	Customers(ctx context.Context) ([]customers.ReportRow, error)
}

// Params groups the report service collaborators.
type Params struct {
	Catalog    *catalog.Repository
	Promotions *promotions.Repository
	Sales      *sales.Repository
	Customers  *customers.Repository
	Calendar   *dates.Calendar
	Config     config.ReportsConfig
}

type service struct {
	catalog    *catalog.Repository
	promotions *promotions.Repository
	sales      *sales.Repository
	customers  *customers.Repository
	calendar   *dates.Calendar
	cfg        config.ReportsConfig
}

func NewService(p Params) (Service, error) {
	if p.Catalog == nil || p.Promotions == nil || p.Sales == nil || p.Customers == nil {
		return nil, fmt.Errorf("report repositories required")
	}
	if p.Calendar == nil {
		return nil, fmt.Errorf("calendar required")
	}
	cfg := p.Config
	if cfg.CatalogExpiryDays <= 0 {
		cfg.CatalogExpiryDays = catalog.DefaultExpiryHorizonDays
	}
	if cfg.DashboardExpiryDays <= 0 {
		cfg.DashboardExpiryDays = 30
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	if cfg.RecentSales <= 0 {
		cfg.RecentSales = 5
	}
	return &service{
		catalog:    p.Catalog,
		promotions: p.Promotions,
		sales:      p.Sales,
		customers:  p.Customers,
		calendar:   p.Calendar,
		cfg:        cfg,
	}, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	today := s.calendar.Today()
	out := &Dashboard{GeneratedOn: today.Format(time.DateOnly)}

	var err error
	if out.TotalCustomers, err = s.customers.Count(ctx); err != nil {
		return nil, dependency(err, "count customers")
	}
	if out.TotalSales, err = s.sales.Count(ctx); err != nil {
		return nil, dependency(err, "count sales")
	}
	if out.TotalProducts, err = s.catalog.CountProducts(ctx); err != nil {
		return nil, dependency(err, "count products")
	}
	if out.ActivePromotions, err = s.promotions.CountEffective(ctx, today); err != nil {
		return nil, dependency(err, "count promotions")
	}
	if out.Revenue, err = s.sales.Revenue(ctx); err != nil {
		return nil, dependency(err, "sum revenue")
	}

	recent, err := s.sales.ListRecent(ctx, s.cfg.RecentSales)
	if err != nil {
		return nil, dependency(err, "list recent sales")
	}
	out.RecentSales = make([]sales.SaleDTO, 0, len(recent))
	for _, sale := range recent {
		out.RecentSales = append(out.RecentSales, sales.FromModel(sale))
	}

	top, err := s.sales.TopSellers(ctx, s.cfg.TopN)
	if err != nil {
		return nil, dependency(err, "rank top sellers")
	}
	out.TopSellers = make([]TopSellerDTO, 0, len(top))
	for _, t := range top {
		out.TopSellers = append(out.TopSellers, TopSellerDTO{ProductID: t.ProductID, Name: t.Name, Quantity: t.Quantity, Revenue: t.Revenue})
	}

	if out.ExpiringProducts, err = s.expiring(ctx, today, s.cfg.DashboardExpiryDays); err != nil {
		return nil, err
	}

	upcoming, err := s.promotions.ListUpcoming(ctx, today)
	if err != nil {
		return nil, dependency(err, "list upcoming promotions")
	}
	out.UpcomingPromotions = make([]promotions.PromotionDTO, 0, len(upcoming))
	for _, p := range upcoming {
		out.UpcomingPromotions = append(out.UpcomingPromotions, promotions.FromModel(p))
	}

	ending, err := s.promotions.ListExpiringBetween(ctx, today, dates.AddDays(today, s.cfg.CatalogExpiryDays))
	if err != nil {
		return nil, dependency(err, "list ending promotions")
	}
	out.PromotionsEndingSoon = make([]promotions.Summary, 0, len(ending))
	for _, p := range ending {
		if promotions.IsEffectiveOn(p, today) {
			out.PromotionsEndingSoon = append(out.PromotionsEndingSoon, promotions.SummaryFromModel(p))
		}
	}
	return out, nil
}

func (s *service) CatalogAlerts(ctx context.Context) ([]ExpiringProductDTO, error) {
	return s.expiring(ctx, s.calendar.Today(), s.cfg.CatalogExpiryDays)
}

func (s *service) Customers(ctx context.Context) ([]customers.ReportRow, error) {
	rows, err := s.customers.ListWithTotals(ctx)
	if err != nil {
		return nil, dependency(err, "list customers")
	}
	return rows, nil
}

func (s *service) expiring(ctx context.Context, today time.Time, horizonDays int) ([]ExpiringProductDTO, error) {
	products, err := s.catalog.ListExpiringBy(ctx, dates.AddDays(today, horizonDays))
	if err != nil {
		return nil, dependency(err, "list expiring products")
	}
	out := make([]ExpiringProductDTO, 0, len(products))
	for _, p := range products {
		if !catalog.NearExpiry(p, today, horizonDays) {
			continue
		}
		out = append(out, expiringFromModel(p, today))
	}
	return out, nil
}

func expiringFromModel(p models.Product, today time.Time) ExpiringProductDTO {
	expires := dates.Day(*p.ExpiresOn, time.UTC)
	days := int(expires.Sub(today).Hours() / 24)
	dto := ExpiringProductDTO{
		ProductID: p.ID,
		Name:      p.Name,
		Stock:     p.Stock,
		ExpiresOn: expires.Format(time.DateOnly),
		DaysLeft:  days,
		Expired:   days < 0,
	}
	if p.Category != nil {
		name := p.Category.Name
		dto.CategoryName = &name
	}
	return dto
}

func dependency(err error, msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
