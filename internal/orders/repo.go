package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailerp-backend/internal/repo"
	"github.com/angelmondragon/retailerp-backend/pkg/db/models"
	"github.com/angelmondragon/retailerp-backend/pkg/pagination"
)

// Repository persists submitted orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, query listQuery) ([]models.Order, *pagination.Cursor, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

// Create inserts the order and its lines. Ids are assigned when missing.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
		order.Lines[i].OrderID = order.ID
	}
	return r.DB(ctx).Create(order).Error
}

// FindByID returns nil when no order matches.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return repo.FirstOrNil[models.Order](r.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id))
}

func (r *repository) List(ctx context.Context, query listQuery) ([]models.Order, *pagination.Cursor, error) {
	q := r.DB(ctx).Model(&models.Order{})
	if query.Screen != "" {
		q = q.Where("screen = ?", query.Screen)
	}
	if needle := strings.TrimSpace(query.Query); needle != "" {
		like := "%" + repo.EscapeLike(needle) + "%"
		q = q.Where("(lower(reference) LIKE ? ESCAPE '\\' OR lower(coalesce(customer_name, '')) LIKE ? ESCAPE '\\')", like, like)
	}

	cmp, dir := "<", "DESC"
	if query.Direction == pagination.DirectionAsc {
		cmp, dir = ">", "ASC"
	}
	column := "created_at"
	if query.Sort == SortTotalPayable {
		column = "total_payable"
	}

	if c := query.Cursor; c != nil {
		if query.Sort == SortTotalPayable {
			key, err := decimal.NewFromString(c.Key)
			if err != nil {
				return nil, nil, err
			}
			q = q.Where("(total_payable, id) "+cmp+" (?, ?)", key, c.ID)
		} else {
			q = q.Where("(created_at, id) "+cmp+" (?, ?)", c.CreatedAt, c.ID)
		}
	}

	var orders []models.Order
	if err := q.Order(column + " " + dir + ", id " + dir).Limit(pagination.LimitWithBuffer(query.Limit)).Find(&orders).Error; err != nil {
		return nil, nil, err
	}

	page, next := pagination.Trim(orders, query.Limit, func(last models.Order) pagination.Cursor {
		c := pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		if query.Sort == SortTotalPayable {
			c.Key = last.TotalPayable.StringFixed(2)
		}
		return c
	})
	return page, next, nil
}
