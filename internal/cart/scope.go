package cart

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scope identifies the cart a request operates on. Every cart operation takes
// it explicitly; the service keeps no per-session state of its own.
type Scope struct {
	SessionKey string
	UserID     uuid.UUID
}

// ScopeForUser keys the cart by the authenticated user so it survives token refreshes.
func ScopeForUser(userID uuid.UUID) Scope {
	return Scope{SessionKey: userID.String(), UserID: userID}
}

func (s Scope) valid() bool {
	return strings.TrimSpace(s.SessionKey) != ""
}

// Entry is one product line held in a cart.
type Entry struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ListPrice decimal.Decimal `json:"list_price"`
	Quantity  int             `json:"quantity"`
}

// Cart is the stored form of a session cart. Entries keep insertion order.
type Cart struct {
	Entries []Entry `json:"entries"`
}

func (c *Cart) find(productID uuid.UUID) int {
	for i, e := range c.Entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(productID uuid.UUID) bool {
	idx := c.find(productID)
	if idx < 0 {
		return false
	}
	c.Entries = append(c.Entries[:idx], c.Entries[idx+1:]...)
	return true
}

// IsEmpty reports whether the cart holds no entries.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Entries) == 0
}

// MergePolicy decides the resulting quantity when adding to a cart.
type MergePolicy string

const (
	MergeCap      MergePolicy = "cap"
	MergeUncapped MergePolicy = "uncapped"
)

// ParseMergePolicy maps config values onto a policy, defaulting to MergeCap.
func ParseMergePolicy(value string) MergePolicy {
	if MergePolicy(strings.ToLower(strings.TrimSpace(value))) == MergeUncapped {
		return MergeUncapped
	}
	return MergeCap
}

// Merge returns the quantity after adding requested to current with stock on hand,
// and whether it was limited by stock.
func (p MergePolicy) Merge(current, requested, stock int) (int, bool) {
	total := current + requested
	if p == MergeUncapped || total <= stock {
		return total, false
	}
	return stock, true
}
