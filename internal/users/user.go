package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
)

// Profile is the account as shown to its owner; the password hash never
// leaves this package.
type Profile struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	FullName    string         `json:"full_name"`
	Role        enums.UserRole `json:"role"`
	Active      bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func ProfileOf(u *models.User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    strings.TrimSpace(u.FirstName + " " + u.LastName),
		Role:        u.Role,
		Active:      u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// NewUser is an account about to be stored. Unknown roles fall back to
// customer so self-registration can never mint staff.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         enums.UserRole
}

func (n NewUser) model() *models.User {
	role := n.Role
	if !role.IsValid() {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		Email:        NormalizeEmail(n.Email),
		PasswordHash: n.PasswordHash,
		FirstName:    strings.TrimSpace(n.FirstName),
		LastName:     strings.TrimSpace(n.LastName),
		Role:         role,
		IsActive:     true,
	}
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
