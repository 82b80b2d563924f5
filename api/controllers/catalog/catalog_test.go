package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	internalcatalog "github.com/angelmondragon/retailerp-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
)

type stubLookup struct {
	items     map[string]internalcatalog.Item
	lastLimit int
}

func (s *stubLookup) Lookup(_ context.Context, id string) (internalcatalog.Item, error) {
	if item, ok := s.items[id]; ok {
		return item, nil
	}
	return internalcatalog.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubLookup) FindByName(_ context.Context, name string) (internalcatalog.Item, error) {
	for _, item := range s.items {
		if item.Name == name {
			return item, nil
		}
	}
	return internalcatalog.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubLookup) Search(_ context.Context, _ string, limit int) ([]internalcatalog.Item, error) {
	s.lastLimit = limit
	return nil, nil
}

func newRouter(svc *stubLookup) http.Handler {
	r := chi.NewRouter()
	r.Get("/products", SearchProducts(svc, nil))
	r.Get("/products/{productId}", GetProduct(svc, nil))
	return r
}

func TestGetProduct(t *testing.T) {
	svc := &stubLookup{items: map[string]internalcatalog.Item{"p1": {ID: "p1", Name: "Mug", Price: 8.5}}}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/p1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body struct {
		Data internalcatalog.Item `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Name != "Mug" {
		t.Fatalf("unexpected item %+v", body.Data)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestSearchProducts(t *testing.T) {
	svc := &stubLookup{items: map[string]internalcatalog.Item{"p1": {ID: "p1", Name: "Mug"}}}
	router := newRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?name=Mug", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("exact name lookup: expected 200 got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products?q=mu&limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("search: expected 200 got %d", rec.Code)
	}
	if svc.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d", svc.lastLimit)
	}
	var body struct {
		Data []internalcatalog.Item `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data == nil {
		t.Fatalf("empty search should render []")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing query: expected 400 got %d", rec.Code)
	}
}
