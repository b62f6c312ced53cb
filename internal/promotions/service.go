package promotions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
)

var (
	minPercentage = decimal.NewFromInt(1)
	maxPercentage = decimal.NewFromInt(100)
)

// Service exposes promotion management for marketing staff.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*PromotionDTO, error)
	List(ctx context.Context) ([]PromotionDTO, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*PromotionDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs a promotion service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*PromotionDTO, error) {
	productIDs, err := validateCreate(&input)
	if err != nil {
		return nil, err
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	promo := &models.Promotion{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Type:          input.Type,
		DiscountValue: input.DiscountValue,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		Active:        active,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if len(productIDs) > 0 {
			found, err := repo.CountProducts(ctx, productIDs)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promotion products")
			}
			if found != int64(len(productIDs)) {
				return pkgerrors.New(pkgerrors.CodeValidation, "one or more products do not exist").
					WithDetails(map[string]any{"product_ids": productIDs})
			}
		}
		if err := repo.Create(ctx, promo, productIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create promotion")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, promo.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload promotion")
	}
	dto := FromModel(*created)
	return &dto, nil
}

func (s *service) List(ctx context.Context) ([]PromotionDTO, error) {
	promos, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list promotions")
	}
	out := make([]PromotionDTO, 0, len(promos))
	for _, p := range promos {
		out = append(out, FromModel(p))
	}
	return out, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*PromotionDTO, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update promotion")
	}
	promo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload promotion")
	}
	dto := FromModel(*promo)
	return &dto, nil
}

// validateCreate checks the promotion invariants and returns the de-duplicated product ids.
func validateCreate(input *CreateInput) ([]uuid.UUID, error) {
	fields := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		fields["name"] = "is required"
	}
	if !input.Type.IsValid() {
		fields["type"] = fmt.Sprintf("must be one of %s, %s, %s",
			enums.PromotionTypePercentage, enums.PromotionTypeFixedAmount, enums.PromotionTypeBuyTwoPayOne)
	}

	switch {
	case input.Type == enums.PromotionTypeBuyTwoPayOne:
		input.DiscountValue = nil
	case input.Type.RequiresValue() && input.DiscountValue == nil:
		fields["discount_value"] = "is required"
	case input.Type == enums.PromotionTypePercentage:
		if input.DiscountValue.LessThan(minPercentage) || input.DiscountValue.GreaterThan(maxPercentage) {
			fields["discount_value"] = "must be between 1 and 100"
		}
	case input.Type == enums.PromotionTypeFixedAmount:
		if !input.DiscountValue.IsPositive() {
			fields["discount_value"] = "must be positive"
		}
	}

	if input.StartDate.IsZero() {
		fields["start_date"] = "is required"
	}
	if input.EndDate.IsZero() {
		fields["end_date"] = "is required"
	}
	if !input.StartDate.IsZero() && !input.EndDate.IsZero() && input.StartDate.After(input.EndDate) {
		fields["end_date"] = "must not be before start_date"
	}

	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid promotion").WithDetails(fields)
	}
	return uniqueIDs(input.ProductIDs), nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Resolver builds pricebooks for a calendar day.
type Resolver struct {
	repo *Repository
}

// NewResolver constructs a price resolver over the promotion repository.
func NewResolver(repo *Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Pricebook loads the promotions that may apply on day. When tx is non-nil the
// read happens inside that transaction.
func (r *Resolver) Pricebook(ctx context.Context, tx *gorm.DB, day time.Time) (*Pricebook, error) {
	repo := r.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	candidates, err := repo.ListCandidates(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}
	return NewPricebook(day, candidates), nil
}

// EffectivePrice quotes a single product on day.
func (r *Resolver) EffectivePrice(ctx context.Context, product models.Product, day time.Time) (Quote, error) {
	book, err := r.Pricebook(ctx, nil, day)
	if err != nil {
		return Quote{}, err
	}
	return book.Quote(product), nil
}
