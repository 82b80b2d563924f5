package catalog

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/retailerp-backend/api/responses"
	"github.com/angelmondragon/retailerp-backend/api/validators"
	internalcatalog "github.com/angelmondragon/retailerp-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/pagination"
)

const maxQueryLength = 100

type lookupService interface {
	Lookup(ctx context.Context, id string) (internalcatalog.Item, error)
	FindByName(ctx context.Context, name string) (internalcatalog.Item, error)
	Search(ctx context.Context, query string, limit int) ([]internalcatalog.Item, error)
}

// GetProduct resolves one product by id.
func GetProduct(svc lookupService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := svc.Lookup(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// SearchProducts answers the row product dropdown. name= is an exact,
// case-insensitive match returning a single item; q= is a prefix/contains search.
func SearchProducts(svc lookupService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if name := validators.QueryString(r, "name", maxQueryLength); name != "" {
			item, err := svc.FindByName(r.Context(), name)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, item)
			return
		}

		q := validators.QueryString(r, "q", maxQueryLength)
		if q == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "q or name is required").
				WithDetails(map[string]string{"q": "is required"}))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Search(r.Context(), q, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if items == nil {
			items = []internalcatalog.Item{}
		}
		responses.WriteSuccess(w, items)
	}
}
