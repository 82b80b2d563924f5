package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailerp-backend/internal/repo"
	"github.com/angelmondragon/retailerp-backend/pkg/db/models"
)

// Repository reads products from the database.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByName(ctx context.Context, name string) (*models.Product, error)
	Search(ctx context.Context, query string, limit int) ([]models.Product, error)
	StockFor(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a gorm-backed product repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

// FindByID returns nil when the product does not exist or is inactive.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return repo.FirstOrNil[models.Product](r.DB(ctx).Where("id = ? AND is_active = ?", id, true))
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	return repo.FirstOrNil[models.Product](r.DB(ctx).
		Where("lower(name) = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(name)), true).
		Order("created_at ASC"))
}

// Search matches the query against name (contains) and SKU (prefix).
func (r *repository) Search(ctx context.Context, query string, limit int) ([]models.Product, error) {
	needle := repo.EscapeLike(query)
	var products []models.Product
	err := r.DB(ctx).
		Where("is_active = ?", true).
		Where("(lower(name) LIKE ? ESCAPE '\\' OR lower(sku) LIKE ? ESCAPE '\\')", "%"+needle+"%", needle+"%").
		Order("name ASC").
		Order("id ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *repository) StockFor(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.DB(ctx).
		Select("id", "available_qty").
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}
