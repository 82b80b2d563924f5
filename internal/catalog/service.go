package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/money"
	"github.com/angelmondragon/retailerp-backend/pkg/pagination"
	"github.com/angelmondragon/retailerp-backend/pkg/redis"
)

// Service resolves products for order-entry rows.
type Service interface {
	Lookup(ctx context.Context, id string) (Item, error)
	FindByName(ctx context.Context, name string) (Item, error)
	Search(ctx context.Context, query string, limit int) ([]Item, error)
	// StockFor returns authoritative stock keyed by product id. Products
	// without tracked stock are absent from the map.
	StockFor(ctx context.Context, ids []string) (map[string]float64, error)
}

// Cache is the read-through cache in front of the repository.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	CatalogKey(productID string) string
}

type service struct {
	repo     Repository
	cache    Cache
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService builds the catalog service. cache may be nil to disable caching.
func NewService(repo Repository, cache Cache, cacheTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, cache: cache, cacheTTL: cacheTTL, logg: logg}, nil
}

func (s *service) Lookup(ctx context.Context, id string) (Item, error) {
	productID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Item{}, notFound(id)
	}

	if item, ok := s.fromCache(ctx, productID.String()); ok {
		return item, nil
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Item{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return Item{}, notFound(id)
	}

	item := itemFromModel(*product)
	s.toCache(ctx, item)
	return item, nil
}

func (s *service) FindByName(ctx context.Context, name string) (Item, error) {
	if strings.TrimSpace(name) == "" {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	product, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return Item{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find product by name")
	}
	if product == nil {
		return Item{}, notFound(name)
	}
	item := itemFromModel(*product)
	s.toCache(ctx, item)
	return item, nil
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]Item, error) {
	if strings.TrimSpace(query) == "" {
		return []Item{}, nil
	}
	products, err := s.repo.Search(ctx, query, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}
	items := make([]Item, 0, len(products))
	for _, p := range products {
		items = append(items, itemFromModel(p))
	}
	return items, nil
}

func (s *service) StockFor(ctx context.Context, ids []string) (map[string]float64, error) {
	parsed := make([]uuid.UUID, 0, len(ids))
	seen := map[uuid.UUID]struct{}{}
	for _, raw := range ids {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		parsed = append(parsed, id)
	}

	stock := make(map[string]float64, len(parsed))
	if len(parsed) == 0 {
		return stock, nil
	}
	products, err := s.repo.StockFor(ctx, parsed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	for _, p := range products {
		if p.AvailableQty.Valid {
			stock[p.ID.String()] = money.Float(p.AvailableQty.Decimal)
		}
	}
	return stock, nil
}

func (s *service) fromCache(ctx context.Context, id string) (Item, bool) {
	if s.cache == nil {
		return Item{}, false
	}
	var item Item
	err := s.cache.GetJSON(ctx, s.cache.CatalogKey(id), &item)
	switch {
	case err == nil:
		return item, true
	case errors.Is(err, redis.ErrCacheMiss):
		return Item{}, false
	default:
		logCtx := s.logg.WithFields(ctx, map[string]any{"product_id": id, "error": err.Error()})
		s.logg.Warn(logCtx, "catalog cache read failed")
		return Item{}, false
	}
}

func (s *service) toCache(ctx context.Context, item Item) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, s.cache.CatalogKey(item.ID), item, s.cacheTTL); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"product_id": item.ID, "error": err.Error()})
		s.logg.Warn(logCtx, "catalog cache write failed")
	}
}

func notFound(query string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(map[string]any{"query": query})
}
