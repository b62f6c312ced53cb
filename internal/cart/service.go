package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
)

type productLoader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Service manages per-session carts.
type Service interface {
	Add(ctx context.Context, scope Scope, productID uuid.UUID, qty int) (*AddResult, error)
	Remove(ctx context.Context, scope Scope, productID uuid.UUID) (*View, error)
	View(ctx context.Context, scope Scope) (*View, error)
	Clear(ctx context.Context, scope Scope) error
	Snapshot(ctx context.Context, scope Scope) ([]Entry, error)
}

// Line is a cart entry as shown to the shopper.
type Line struct {
	Entry
	Subtotal decimal.Decimal `json:"subtotal"`
}

// View is the priced cart returned to the client.
type View struct {
	Lines     []Line          `json:"lines"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	Dropped   []uuid.UUID     `json:"dropped,omitempty"`
}

// AddResult reports the quantity kept after an add.
type AddResult struct {
	Cart      *View `json:"cart"`
	Requested int   `json:"requested"`
	Quantity  int   `json:"quantity"`
	Capped    bool  `json:"capped"`
}

type service struct {
	store    Store
	products productLoader
	policy   MergePolicy
}

// NewService builds the cart service.
func NewService(store Store, products productLoader, policy MergePolicy) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if policy == "" {
		policy = MergeCap
	}
	return &service{store: store, products: products, policy: policy}, nil
}

func (s *service) Add(ctx context.Context, scope Scope, productID uuid.UUID, qty int) (*AddResult, error) {
	if !scope.valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": qty})
	}

	product, err := s.products.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.Stock <= 0 {
		return nil, insufficientStock(product.ID, qty, product.Stock)
	}

	cart, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}

	current := 0
	idx := cart.find(productID)
	if idx >= 0 {
		current = cart.Entries[idx].Quantity
	}
	quantity, capped := s.policy.Merge(current, qty, product.Stock)

	entry := Entry{ProductID: product.ID, Name: product.Name, ListPrice: product.Price, Quantity: quantity}
	if idx >= 0 {
		cart.Entries[idx] = entry
	} else {
		cart.Entries = append(cart.Entries, entry)
	}
	if err := s.save(ctx, scope, cart); err != nil {
		return nil, err
	}

	return &AddResult{
		Cart:      render(cart, nil),
		Requested: qty,
		Quantity:  quantity,
		Capped:    capped,
	}, nil
}

func (s *service) Remove(ctx context.Context, scope Scope, productID uuid.UUID) (*View, error) {
	if !scope.valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	cart, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	if !cart.remove(productID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	if err := s.save(ctx, scope, cart); err != nil {
		return nil, err
	}
	return render(cart, nil), nil
}

// View renders the cart, dropping entries whose product no longer exists.
func (s *service) View(ctx context.Context, scope Scope) (*View, error) {
	if !scope.valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	cart, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return render(cart, nil), nil
	}

	ids := make([]uuid.UUID, 0, len(cart.Entries))
	for _, e := range cart.Entries {
		ids = append(ids, e.ProductID)
	}
	existing, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}

	var dropped []uuid.UUID
	kept := cart.Entries[:0]
	for _, e := range cart.Entries {
		if _, ok := existing[e.ProductID]; !ok {
			dropped = append(dropped, e.ProductID)
			continue
		}
		kept = append(kept, e)
	}
	cart.Entries = kept
	if len(dropped) > 0 {
		if err := s.save(ctx, scope, cart); err != nil {
			return nil, err
		}
	}
	return render(cart, dropped), nil
}

func (s *service) Clear(ctx context.Context, scope Scope) error {
	if !scope.valid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	if err := s.store.Delete(ctx, scope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Snapshot returns a copy of the stored entries for checkout.
func (s *service) Snapshot(ctx context.Context, scope Scope) ([]Entry, error) {
	if !scope.valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session required")
	}
	cart, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	return append([]Entry(nil), cart.Entries...), nil
}

func (s *service) load(ctx context.Context, scope Scope) (*Cart, error) {
	cart, err := s.store.Load(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) save(ctx context.Context, scope Scope, cart *Cart) error {
	if err := s.store.Save(ctx, scope, cart); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func render(cart *Cart, dropped []uuid.UUID) *View {
	view := &View{Lines: []Line{}, Total: decimal.Zero, Dropped: dropped}
	for _, e := range cart.Entries {
		subtotal := e.ListPrice.Mul(decimal.NewFromInt(int64(e.Quantity))).Round(2)
		view.Lines = append(view.Lines, Line{Entry: e, Subtotal: subtotal})
		view.ItemCount += e.Quantity
		view.Total = view.Total.Add(subtotal)
	}
	return view
}

func insufficientStock(productID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
		"product_id": productID,
		"requested":  requested,
		"available":  available,
	})
}
