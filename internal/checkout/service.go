package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/internal/cart"
	"github.com/secretoheladeria/heladeria-backend/internal/sales"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
	"github.com/secretoheladeria/heladeria-backend/pkg/logger"
	"github.com/secretoheladeria/heladeria-backend/pkg/metrics"
)

type cartStore interface {
	Snapshot(ctx context.Context, scope cart.Scope) ([]cart.Entry, error)
	Clear(ctx context.Context, scope cart.Scope) error
}

type customerLoader interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Customer, error)
}

type finalizer interface {
	Finalize(ctx context.Context, input sales.FinalizeInput) (*sales.SaleDTO, error)
}

// Service finalizes the current session's cart into an order.
type Service interface {
	FinalizeOrder(ctx context.Context, scope cart.Scope) (*sales.SaleDTO, error)
}

type service struct {
	carts     cartStore
	customers customerLoader
	finalizer finalizer
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the checkout service. metrics and logg may be nil.
func NewService(carts cartStore, customers customerLoader, f finalizer, m *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	if f == nil {
		return nil, fmt.Errorf("finalizer required")
	}
	return &service{carts: carts, customers: customers, finalizer: f, metrics: m, logg: logg, now: time.Now}, nil
}

// FinalizeOrder converts the cart into a sale. The cart is cleared only once
// the sale has committed; on failure it is left as it was.
func (s *service) FinalizeOrder(ctx context.Context, scope cart.Scope) (*sales.SaleDTO, error) {
	started := s.now()
	sale, err := s.finalize(ctx, scope)
	if err != nil {
		code := pkgerrors.CodeInternal
		if typed := pkgerrors.As(err); typed != nil {
			code = typed.Code()
		}
		s.metrics.ObserveFinalize(string(code), s.now().Sub(started))
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"cart_session": scope.SessionKey, "code": string(code)})
			s.logg.Warn(logCtx, "checkout.failed")
		}
		return nil, err
	}

	s.metrics.ObserveFinalize(metrics.ResultSuccess, s.now().Sub(started))
	total, _ := sale.Total.Float64()
	s.metrics.ObserveSale(len(sale.Lines), total)

	if clearErr := s.carts.Clear(ctx, scope); clearErr != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "sale_id", sale.ID.String()), "checkout.cart_clear_failed", clearErr)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"sale_id": sale.ID.String(),
			"total":   sale.Total.StringFixed(2),
			"lines":   len(sale.Lines),
		})
		s.logg.Info(logCtx, "checkout.finalized")
	}
	return sale, nil
}

func (s *service) finalize(ctx context.Context, scope cart.Scope) (*sales.SaleDTO, error) {
	entries, err := s.carts.Snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	customer, err := s.customers.FindByUserID(ctx, scope.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	lines := make([]sales.LineInput, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, sales.LineInput{ProductID: e.ProductID, Quantity: e.Quantity})
	}
	return s.finalizer.Finalize(ctx, sales.FinalizeInput{CustomerID: &customer.ID, Lines: lines})
}
