package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/internal/promotions"
	"github.com/secretoheladeria/heladeria-backend/pkg/dates"
	"github.com/secretoheladeria/heladeria-backend/pkg/db"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
)

// Service exposes the public catalog and its administration.
type Service interface {
	ListCatalog(ctx context.Context) ([]CategoryGroup, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type priceResolver interface {
	Pricebook(ctx context.Context, tx *gorm.DB, day time.Time) (*promotions.Pricebook, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo        *Repository
	tx          txRunner
	resolver    priceResolver
	calendar    *dates.Calendar
	horizonDays int
}

// ServiceParams groups catalog service collaborators.
type ServiceParams struct {
	Repo        *Repository
	Tx          txRunner
	Resolver    priceResolver
	Calendar    *dates.Calendar
	HorizonDays int
}

// NewService constructs the catalog service.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if p.Calendar == nil {
		return nil, fmt.Errorf("calendar required")
	}
	if p.HorizonDays <= 0 {
		p.HorizonDays = DefaultExpiryHorizonDays
	}
	return &service{
		repo:        p.Repo,
		tx:          p.Tx,
		resolver:    p.Resolver,
		calendar:    p.Calendar,
		horizonDays: p.HorizonDays,
	}, nil
}

func (s *service) pricebook(ctx context.Context) (*promotions.Pricebook, error) {
	book, err := s.resolver.Pricebook(ctx, nil, s.calendar.Today())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotions")
	}
	return book, nil
}

func (s *service) ListCatalog(ctx context.Context) ([]CategoryGroup, error) {
	products, err := s.repo.ListInStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	book, err := s.pricebook(ctx)
	if err != nil {
		return nil, err
	}

	groups := map[uuid.UUID]*CategoryGroup{}
	var uncategorized *CategoryGroup
	for _, p := range products {
		dto := productFromModel(p, book, s.horizonDays)
		if p.Category == nil {
			if uncategorized == nil {
				uncategorized = &CategoryGroup{Label: UncategorizedLabel}
			}
			uncategorized.Products = append(uncategorized.Products, dto)
			continue
		}
		group, ok := groups[p.Category.ID]
		if !ok {
			group = &CategoryGroup{Category: categoryFromModel(p.Category), Label: p.Category.Name}
			groups[p.Category.ID] = group
		}
		group.Products = append(group.Products, dto)
	}

	out := make([]CategoryGroup, 0, len(groups)+1)
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	if uncategorized != nil {
		out = append(out, *uncategorized)
	}
	return out, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	book, err := s.pricebook(ctx)
	if err != nil {
		return nil, err
	}
	dto := productFromModel(*product, book, s.horizonDays)
	return &dto, nil
}

func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category").
			WithDetails(map[string]string{"name": "is required"})
	}
	category := &models.Category{Name: name, Description: input.Description}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "category already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return categoryFromModel(category), nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(categories))
	for i := range categories {
		out = append(out, *categoryFromModel(&categories[i]))
	}
	return out, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	fields := map[string]string{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields["name"] = "is required"
	}
	if input.Price.IsNegative() {
		fields["price"] = "must not be negative"
	}
	if input.Stock < 0 {
		fields["stock"] = "must not be negative"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(fields)
	}

	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        name,
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Price:       input.Price.Round(2),
		Stock:       input.Stock,
		ExpiresOn:   normalizeDay(input.ExpiresOn),
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	columns := map[string]any{}
	fields := map[string]string{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			fields["name"] = "must not be empty"
		}
		columns["name"] = name
	}
	if input.Description != nil {
		columns["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			fields["price"] = "must not be negative"
		}
		columns["price"] = input.Price.Round(2)
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			fields["stock"] = "must not be negative"
		}
		columns["stock"] = *input.Stock
	}
	switch {
	case input.ClearExpiry:
		columns["expires_on"] = nil
	case input.ExpiresOn != nil:
		columns["expires_on"] = *normalizeDay(input.ExpiresOn)
	}
	switch {
	case input.ClearCategory:
		columns["category_id"] = nil
	case input.CategoryID != nil:
		if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		columns["category_id"] = *input.CategoryID
	}

	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(fields)
	}
	if len(columns) == 0 {
		return s.GetProduct(ctx, id)
	}
	if err := s.repo.UpdateProduct(ctx, id, columns); err != nil {
		if db.IsCheckViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product")
		}
		return nil, notFoundOr(err, "product")
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct refuses to remove products that appear in past sales.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountSaleLines(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product sales")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "product has recorded sales")
		}
		if err := repo.DeleteProduct(ctx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product has recorded sales")
			}
			return notFoundOr(err, "product")
		}
		return nil
	})
}

func (s *service) ensureCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.repo.FindCategory(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist").
				WithDetails(map[string]string{"category_id": id.String()})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return nil
}

func normalizeDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := dates.Day(*t, time.UTC)
	return &day
}

func notFoundOr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}
