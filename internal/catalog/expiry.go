package catalog

import (
	"time"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/dates"
)

// DefaultExpiryHorizonDays is the catalog alert window.
const DefaultExpiryHorizonDays = 7

// NearExpiry reports whether product expires on or before today plus horizonDays.
// Products without an expiry date never qualify. Already expired products do.
func NearExpiry(product models.Product, today time.Time, horizonDays int) bool {
	if product.ExpiresOn == nil {
		return false
	}
	limit := dates.AddDays(today, horizonDays)
	return !dates.Day(*product.ExpiresOn, time.UTC).After(limit)
}
