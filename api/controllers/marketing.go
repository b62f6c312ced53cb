package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/secretoheladeria/heladeria-backend/api/responses"
	"github.com/secretoheladeria/heladeria-backend/api/validators"
	"github.com/secretoheladeria/heladeria-backend/internal/promotions"
	"github.com/secretoheladeria/heladeria-backend/internal/reports"
	"github.com/secretoheladeria/heladeria-backend/pkg/enums"
	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
	"github.com/secretoheladeria/heladeria-backend/pkg/logger"
)

type createPromotionRequest struct {
	Name          string           `json:"name" validate:"required,max=120"`
	Description   *string          `json:"description,omitempty"`
	Type          string           `json:"type" validate:"required,promotion_type"`
	DiscountValue *decimal.Decimal `json:"discount_value,omitempty"`
	StartDate     string           `json:"start_date" validate:"required,calendar_day"`
	EndDate       string           `json:"end_date" validate:"required,calendar_day"`
	ProductIDs    []string         `json:"product_ids,omitempty"`
	Active        *bool            `json:"active,omitempty"`
}

type setPromotionActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (r createPromotionRequest) toInput() (promotions.CreateInput, error) {
	promoType, err := enums.ParsePromotionType(r.Type)
	if err != nil {
		return promotions.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid promotion type").
			WithDetails(map[string]string{"type": "is invalid"})
	}
	start, err := parseDay(r.StartDate, "start_date")
	if err != nil {
		return promotions.CreateInput{}, err
	}
	end, err := parseDay(r.EndDate, "end_date")
	if err != nil {
		return promotions.CreateInput{}, err
	}
	productIDs, err := parseUUIDs(r.ProductIDs, "product_ids")
	if err != nil {
		return promotions.CreateInput{}, err
	}
	return promotions.CreateInput{
		Name:          validators.CleanText(r.Name, 120),
		Description:   r.Description,
		Type:          promoType,
		DiscountValue: r.DiscountValue,
		StartDate:     start,
		EndDate:       end,
		ProductIDs:    productIDs,
		Active:        r.Active,
	}, nil
}

// MarketingDashboard returns the aggregated shop overview.
func MarketingDashboard(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboard, err := svc.Dashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

func PromotionsList(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func PromotionsCreate(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPromotionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		promo, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, promo)
	}
}

// PromotionsSetActive toggles whether a promotion participates in pricing.
func PromotionsSetActive(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req setPromotionActiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		promo, err := svc.SetActive(r.Context(), id, *req.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, promo)
	}
}
