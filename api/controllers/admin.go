package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/secretoheladeria/heladeria-backend/api/responses"
	"github.com/secretoheladeria/heladeria-backend/api/validators"
	"github.com/secretoheladeria/heladeria-backend/internal/catalog"
	"github.com/secretoheladeria/heladeria-backend/internal/reports"
	"github.com/secretoheladeria/heladeria-backend/pkg/logger"
)

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=80"`
	Description *string `json:"description,omitempty"`
}

type createProductRequest struct {
	Name        string           `json:"name" validate:"required,max=120"`
	Description *string          `json:"description,omitempty"`
	CategoryID  *string          `json:"category_id,omitempty"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       *int             `json:"stock" validate:"required,min=0"`
	ExpiresOn   *string          `json:"expires_on,omitempty" validate:"omitempty,calendar_day"`
}

type updateProductRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,max=120"`
	Description   *string          `json:"description,omitempty"`
	CategoryID    *string          `json:"category_id,omitempty"`
	ClearCategory bool             `json:"clear_category,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Stock         *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
	ExpiresOn     *string          `json:"expires_on,omitempty" validate:"omitempty,calendar_day"`
	ClearExpiry   bool             `json:"clear_expiry,omitempty"`
}

func (r createProductRequest) toInput() (catalog.CreateProductInput, error) {
	categoryID, err := parseOptionalUUID(r.CategoryID, "category_id")
	if err != nil {
		return catalog.CreateProductInput{}, err
	}
	expires, err := parseOptionalDay(r.ExpiresOn, "expires_on")
	if err != nil {
		return catalog.CreateProductInput{}, err
	}
	return catalog.CreateProductInput{
		Name:        validators.CleanText(r.Name, 120),
		Description: r.Description,
		CategoryID:  categoryID,
		Price:       *r.Price,
		Stock:       *r.Stock,
		ExpiresOn:   expires,
	}, nil
}

func (r updateProductRequest) toInput() (catalog.UpdateProductInput, error) {
	categoryID, err := parseOptionalUUID(r.CategoryID, "category_id")
	if err != nil {
		return catalog.UpdateProductInput{}, err
	}
	expires, err := parseOptionalDay(r.ExpiresOn, "expires_on")
	if err != nil {
		return catalog.UpdateProductInput{}, err
	}
	return catalog.UpdateProductInput{
		Name:          r.Name,
		Description:   r.Description,
		CategoryID:    categoryID,
		ClearCategory: r.ClearCategory,
		Price:         r.Price,
		Stock:         r.Stock,
		ExpiresOn:     expires,
		ClearExpiry:   r.ClearExpiry,
	}, nil
}

// AdminCustomers returns every customer with purchase totals.
func AdminCustomers(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.Customers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminCatalogAlerts lists products close to their expiry date.
func AdminCatalogAlerts(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alerts, err := svc.CatalogAlerts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, alerts)
	}
}

func AdminListCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminCreateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCategoryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), catalog.CreateCategoryInput{
			Name:        validators.CleanText(req.Name, 80),
			Description: req.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct removes a product that no sale references.
func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
