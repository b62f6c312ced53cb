package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/internal/customers"
	"github.com/secretoheladeria/heladeria-backend/internal/promotions"
	"github.com/secretoheladeria/heladeria-backend/pkg/dates"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type priceResolver interface {
	Pricebook(ctx context.Context, tx *gorm.DB, day time.Time) (*promotions.Pricebook, error)
}

// Finalizer turns a cart into a sale in a single transaction.
type Finalizer struct {
	tx        txRunner
	repo      *Repository
	customers *customers.Repository
	resolver  priceResolver
	calendar  *dates.Calendar
}

// NewFinalizer wires the order finalization transaction.
func NewFinalizer(tx txRunner, repo *Repository, customerRepo *customers.Repository, resolver priceResolver, calendar *dates.Calendar) (*Finalizer, error) {
	switch {
	case tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case repo == nil:
		return nil, fmt.Errorf("sales repository required")
	case customerRepo == nil:
		return nil, fmt.Errorf("customer repository required")
	case resolver == nil:
		return nil, fmt.Errorf("price resolver required")
	case calendar == nil:
		return nil, fmt.Errorf("calendar required")
	}
	return &Finalizer{tx: tx, repo: repo, customers: customerRepo, resolver: resolver, calendar: calendar}, nil
}

// Finalize validates stock, prices every line for today, records the sale and
// decrements stock. Any failure leaves the database untouched, and a nil error
// means the sale has committed.
func (f *Finalizer) Finalize(ctx context.Context, input FinalizeInput) (*SaleDTO, error) {
	lines, err := mergeLines(input.Lines)
	if err != nil {
		return nil, err
	}
	day := f.calendar.Today()

	var dto SaleDTO
	err = f.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := f.repo.WithTx(tx)

		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		products, err := repo.LockProducts(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		for _, l := range lines {
			product, ok := products[l.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": l.ProductID})
			}
			if l.Quantity > product.Stock {
				return insufficientStock(product, l.Quantity, product.Stock)
			}
		}

		book, err := f.resolver.Pricebook(ctx, tx, day)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotions")
		}

		sale := &models.Sale{CustomerID: input.CustomerID, Total: decimal.Zero}
		if err := repo.CreateSale(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
		}

		saleLines := make([]models.SaleLine, 0, len(lines))
		for i, l := range lines {
			quote := book.Quote(products[l.ProductID])
			saleLines = append(saleLines, models.SaleLine{
				SaleID:      sale.ID,
				ProductID:   l.ProductID,
				PromotionID: quote.PromotionID,
				Position:    i,
				Quantity:    l.Quantity,
				ListPrice:   quote.ListPrice,
				UnitPrice:   quote.UnitPrice,
				Subtotal:    quote.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2),
			})
		}
		if err := repo.CreateLines(ctx, saleLines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale lines")
		}

		for _, l := range lines {
			ok, err := repo.DecrementStock(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !ok {
				return insufficientStock(products[l.ProductID], l.Quantity, -1)
			}
		}

		total, err := repo.SumSubtotals(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum sale lines")
		}
		if err := repo.UpdateTotal(ctx, sale.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale total")
		}

		if input.CustomerID != nil {
			if err := f.customers.WithTx(tx).TouchLastPurchase(ctx, *input.CustomerID, day); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record last purchase")
			}
		}

		// Read in the tx: a nil error from Finalize means the sale committed.
		loaded, err := repo.FindByID(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
		}
		dto = FromModel(*loaded)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// mergeLines folds repeated products together, keeping first-seen order.
func mergeLines(in []LineInput) ([]LineInput, error) {
	if len(in) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	index := map[uuid.UUID]int{}
	out := make([]LineInput, 0, len(in))
	for _, l := range in {
		if l.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": l.ProductID, "quantity": l.Quantity})
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

// insufficientStock builds the error; a negative available means the
// conditional update lost a race and the current level is unknown.
func insufficientStock(product models.Product, requested, available int) error {
	details := map[string]any{
		"product_id":   product.ID,
		"product_name": product.Name,
		"requested":    requested,
	}
	if available >= 0 {
		details["available"] = available
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(details)
}
