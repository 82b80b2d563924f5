package forms

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/retailerp-backend/api/requests"
	"github.com/angelmondragon/retailerp-backend/api/responses"
	"github.com/angelmondragon/retailerp-backend/api/validators"
	internalforms "github.com/angelmondragon/retailerp-backend/internal/forms"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
)

type openRequest struct {
	Screen string `json:"screen" validate:"required,order_screen"`
}

type addRowRequest struct {
	ProductID         string   `json:"productId"`
	Name              string   `json:"name" validate:"max=200"`
	Quantity          *float64 `json:"quantity" validate:"omitempty,gte=0"`
	UnitPrice         *float64 `json:"unitPrice" validate:"omitempty,gte=0"`
	Discount          float64  `json:"discount" validate:"gte=0"`
	CommissionPercent float64  `json:"commissionPercent" validate:"gte=0,lte=100"`
	SearchText        string   `json:"searchText" validate:"max=200"`
}

type updateRowRequest struct {
	ProductID         *string  `json:"productId"`
	Name              *string  `json:"name" validate:"omitempty,max=200"`
	Quantity          *float64 `json:"quantity" validate:"omitempty,gte=0"`
	UnitPrice         *float64 `json:"unitPrice" validate:"omitempty,gte=0"`
	Discount          *float64 `json:"discount" validate:"omitempty,gte=0"`
	CommissionPercent *float64 `json:"commissionPercent" validate:"omitempty,gte=0,lte=100"`
	SearchText        *string  `json:"searchText" validate:"omitempty,max=200"`
	DropdownOpen      *bool    `json:"dropdownOpen"`
}

func Open(svc internalforms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		screen, err := requests.ParseScreen(req.Screen)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := svc.Open(r.Context(), screen)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, form.View())
	}
}

func Get(svc internalforms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := svc.Get(r.Context(), chi.URLParam(r, "formId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, form.View())
	}
}

// Discard drops the form without creating an order.
func Discard(svc internalforms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Discard(r.Context(), chi.URLParam(r, "formId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AddRow(svc internalforms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addRowRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := svc.AddRow(r.Context(), chi.URLParam(r, "formId"), internalforms.RowInput{
			ProductID:         req.ProductID,
			Name:              req.Name,
			Quantity:          req.Quantity,
			UnitPrice:         req.UnitPrice,
			Discount:          req.Discount,
			CommissionPercent: req.CommissionPercent,
			SearchText:        req.SearchText,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, form.View())
	}
}

func UpdateRow(svc internalforms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateRowRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := svc.UpdateRow(r.Context(), chi.URLParam(r, "formId"), chi.URLParam(r, "rowId"), internalforms.RowPatch{
			ProductID:         req.ProductID,
			Name:              req.Name,
			Quantity:          req.Quantity,
			UnitPrice:         req.UnitPrice,
			Discount:          req.Discount,
			CommissionPercent: req.CommissionPercent,
			SearchText:        req.SearchText,
			DropdownOpen:      req.DropdownOpen,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, form.View())
	}
}

func RemoveRow(svc internalforms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := svc.RemoveRow(r.Context(), chi.URLParam(r, "formId"), chi.URLParam(r, "rowId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, form.View())
	}
}

func SetAdjustments(svc internalforms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req requests.Adjustments
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adj, err := req.ToAdjustments()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := svc.SetAdjustments(r.Context(), chi.URLParam(r, "formId"), adj)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, form.View())
	}
}
