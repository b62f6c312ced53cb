package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/internal/customers"
	"github.com/secretoheladeria/heladeria-backend/internal/users"
	pkgAuth "github.com/secretoheladeria/heladeria-backend/pkg/auth"
	"github.com/secretoheladeria/heladeria-backend/pkg/auth/session"
	"github.com/secretoheladeria/heladeria-backend/pkg/config"
	"github.com/secretoheladeria/heladeria-backend/pkg/db"
	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
	"github.com/secretoheladeria/heladeria-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Issue(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, accessID, refreshToken string) (session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

type customerService interface {
	Create(ctx context.Context, tx *gorm.DB, input customers.CreateInput) (*models.Customer, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Tx             txRunner
	Users          *users.Repository
	Customers      *customers.Repository
	CustomerSvc    customerService
	SessionManager sessionManager
	Hasher         *security.Hasher
	JWTConfig      config.JWTConfig
}

type service struct {
	tx          txRunner
	users       *users.Repository
	customers   *customers.Repository
	customerSvc customerService
	session     sessionManager
	hasher      *security.Hasher
	jwtCfg      config.JWTConfig
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner is required")
	case params.Users == nil:
		return nil, fmt.Errorf("user repository is required")
	case params.Customers == nil || params.CustomerSvc == nil:
		return nil, fmt.Errorf("customer dependencies are required")
	case params.SessionManager == nil:
		return nil, fmt.Errorf("session manager is required")
	case params.Hasher == nil:
		return nil, fmt.Errorf("password hasher is required")
	}
	return &service{
		tx:          params.Tx,
		users:       params.Users,
		customers:   params.Customers,
		customerSvc: params.CustomerSvc,
		session:     params.SessionManager,
		hasher:      params.Hasher,
		jwtCfg:      params.JWTConfig,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register creates the login identity and its customer profile together, then signs in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	if err := security.CheckPolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password too weak").
			WithDetails(map[string]string{"password": "must be at least 8 characters"})
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	var customer *models.Customer
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.users.WithTx(tx).Create(ctx, users.NewUser{
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Role:         enums.UserRoleCustomer,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		user = created

		customer, err = s.customerSvc.Create(ctx, tx, customers.CreateInput{
			UserID:  &created.ID,
			Name:    strings.TrimSpace(req.FirstName + " " + req.LastName),
			RUT:     req.RUT,
			Phone:   req.Phone,
			Email:   created.Email,
			Address: req.Address,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.signIn(ctx, user, customer)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	customer, err := s.customers.FindByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return s.signIn(ctx, user, customer)
}

// Refresh rotates the refresh token tied to the presented access token and
// mints a new access token with the user's current role.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	rot, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.ByID(ctx, rot.UserID)
	if err != nil || !user.IsActive {
		_ = s.session.Revoke(ctx, rot.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account unavailable")
	}
	var customerID *uuid.UUID
	if customer, err := s.customers.FindByUserID(ctx, user.ID); err == nil {
		customerID = &customer.ID
	}

	access, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID:     user.ID,
		CustomerID: customerID,
		Role:       user.Role,
		JTI:        rot.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenPair{AccessToken: access, RefreshToken: rot.RefreshToken}, nil
}

// Logout revokes the session of the presented access token, expired or not.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) signIn(ctx context.Context, user *models.User, customer *models.Customer) (*LoginResponse, error) {
	accessID := session.NewAccessID()
	payload := pkgAuth.AccessTokenPayload{UserID: user.ID, Role: user.Role, JTI: accessID}
	resp := &LoginResponse{User: users.ProfileOf(user)}
	if customer != nil {
		payload.CustomerID = &customer.ID
		dto := customers.FromModel(*customer)
		resp.Customer = &dto
	}

	access, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refresh, err := s.session.Issue(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	resp.AccessToken = access
	resp.RefreshToken = refresh
	return resp, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.ByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}
