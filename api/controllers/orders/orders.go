package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/retailerp-backend/api/requests"
	"github.com/angelmondragon/retailerp-backend/api/responses"
	"github.com/angelmondragon/retailerp-backend/api/validators"
	internalorders "github.com/angelmondragon/retailerp-backend/internal/orders"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/pagination"
)

const maxQueryLength = 100

type submitRequest struct {
	Screen       string               `json:"screen" validate:"required,order_screen"`
	CustomerName *string              `json:"customerName" validate:"omitempty,max=200"`
	FormID       string               `json:"formId"`
	Lines        []requests.Line      `json:"lines" validate:"max=500,dive"`
	Adjustments  requests.Adjustments `json:"adjustments"`
}

// Submit persists a finished order. The response carries the stored order and
// any stock clamps applied while re-deriving it.
func Submit(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adj, err := req.Adjustments.ToAdjustments()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), internalorders.SubmitInput{
			Screen:       enums.OrderScreen(req.Screen),
			CustomerName: req.CustomerName,
			FormID:       req.FormID,
			Lines:        requests.LineItems(req.Lines),
			Adjustments:  adj,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Get(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// List serves the orders list screen: screen and q filter, sort/direction
// order, and cursor pages through the result.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		result, err := svc.List(r.Context(), internalorders.ListParams{
			Screen:    query.Get("screen"),
			Query:     validators.QueryString(r, "q", maxQueryLength),
			Sort:      query.Get("sort"),
			Direction: query.Get("direction"),
			Limit:     limit,
			Cursor:    query.Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
