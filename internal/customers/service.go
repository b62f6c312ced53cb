package customers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/pkg/dates"
	"github.com/secretoheladeria/heladeria-backend/pkg/db"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
)

var rutPattern = regexp.MustCompile(`^[0-9]{7,8}-[0-9K]$`)

// Service manages customer profiles.
type Service interface {
	Create(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Customer, error)
	Profile(ctx context.Context, userID uuid.UUID) (*CustomerDTO, error)
}

type service struct {
	repo     *Repository
	calendar *dates.Calendar
}

// NewService constructs the customer service.
func NewService(repo *Repository, calendar *dates.Calendar) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if calendar == nil {
		return nil, fmt.Errorf("calendar required")
	}
	return &service{repo: repo, calendar: calendar}, nil
}

// Create validates and inserts a profile. When tx is non-nil the insert joins it.
func (s *service) Create(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Customer, error) {
	input = normalizeInput(input)
	if fields := validateInput(input); len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer").WithDetails(fields)
	}

	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	customer := &models.Customer{
		UserID:       input.UserID,
		Name:         input.Name,
		RUT:          input.RUT,
		Phone:        input.Phone,
		Email:        input.Email,
		Address:      input.Address,
		RegisteredOn: s.calendar.Today(),
	}
	if err := repo.Create(ctx, customer); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "customer already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	return customer, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*CustomerDTO, error) {
	customer, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	dto := FromModel(*customer)
	return &dto, nil
}

// NormalizeRUT strips dots and spaces and upper-cases the check digit.
func NormalizeRUT(rut string) string {
	r := strings.NewReplacer(".", "", " ", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(rut)))
}

func normalizeInput(in CreateInput) CreateInput {
	in.Name = strings.TrimSpace(in.Name)
	in.RUT = NormalizeRUT(in.RUT)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Address = strings.TrimSpace(in.Address)
	return in
}

func validateInput(in CreateInput) map[string]string {
	fields := map[string]string{}
	if in.Name == "" {
		fields["name"] = "is required"
	}
	if !rutPattern.MatchString(in.RUT) {
		fields["rut"] = "must look like 12345678-K"
	}
	if in.Phone == "" {
		fields["phone"] = "is required"
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		fields["email"] = "must be a valid email"
	}
	if in.Address == "" {
		fields["address"] = "is required"
	}
	return fields
}
