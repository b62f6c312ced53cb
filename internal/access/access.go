// Package access decides which roles may perform which shop operations.
package access

import (
	"fmt"

	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
)

// Capability names an operation guarded by role.
type Capability string

const (
	ManageCart         Capability = "manage_cart"
	Checkout           Capability = "checkout"
	ViewHistory        Capability = "view_history"
	ViewDashboard      Capability = "view_dashboard"
	ManagePromotions   Capability = "manage_promotions"
	ManageCatalog      Capability = "manage_catalog"
	ViewCustomerReport Capability = "view_customer_report"
)

var grants = map[Capability][]enums.UserRole{
	ManageCart:         {enums.UserRoleCustomer},
	Checkout:           {enums.UserRoleCustomer},
	ViewHistory:        {enums.UserRoleCustomer},
	ViewDashboard:      {enums.UserRoleMarketing, enums.UserRoleAdmin},
	ManagePromotions:   {enums.UserRoleMarketing, enums.UserRoleAdmin},
	ManageCatalog:      {enums.UserRoleAdmin},
	ViewCustomerReport: {enums.UserRoleMarketing, enums.UserRoleAdmin},
}

// Decision is the outcome of a capability check.
type Decision struct {
	Capability Capability
	Role       enums.UserRole
	Allowed    bool
	Reason     string
}

// Check evaluates whether role holds capability.
func Check(role enums.UserRole, capability Capability) Decision {
	d := Decision{Capability: capability, Role: role}
	roles, known := grants[capability]
	switch {
	case !known:
		d.Reason = fmt.Sprintf("unknown capability %q", capability)
	case !role.IsValid():
		d.Reason = "unauthenticated or unknown role"
	default:
		for _, r := range roles {
			if r == role {
				d.Allowed = true
				return d
			}
		}
		d.Reason = fmt.Sprintf("role %s lacks %s", role, capability)
	}
	return d
}

// Capabilities lists what role may do, in declaration order.
func Capabilities(role enums.UserRole) []Capability {
	var out []Capability
	for _, c := range []Capability{ManageCart, Checkout, ViewHistory, ViewDashboard, ManagePromotions, ManageCatalog, ViewCustomerReport} {
		if Check(role, c).Allowed {
			out = append(out, c)
		}
	}
	return out
}
