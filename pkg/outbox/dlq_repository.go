package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailerp-backend/internal/repo"
	"github.com/angelmondragon/retailerp-backend/pkg/db/models"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
)

const (
	defaultDLQListLimit = 50
	maxDLQListLimit     = 500
)

// DLQRepository holds outbox rows the dispatcher gave up on, and lets an
// operator put them back in line once the cause is fixed.
type DLQRepository struct {
	repo.Base
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{Base: repo.NewBase(db)}
}

// DLQFilter narrows List. A zero Reason matches every reason.
type DLQFilter struct {
	Reason enums.OutboxDLQErrorReason
	Limit  int
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}
	if entry.ErrorMessage != nil {
		trimmed := truncate(*entry.ErrorMessage, maxLastErrorLen)
		entry.ErrorMessage = &trimmed
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns (nil, nil) when the event was never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	return repo.FirstOrNil[models.OutboxDLQ](r.DB(ctx).Where("event_id = ?", eventID))
}

// List returns the newest failures first.
func (r *DLQRepository) List(ctx context.Context, filter DLQFilter) ([]models.OutboxDLQ, error) {
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = defaultDLQListLimit
	case limit > maxDLQListLimit:
		limit = maxDLQListLimit
	}
	query := r.DB(ctx).Order("failed_at DESC").Limit(limit)
	if filter.Reason != "" {
		query = query.Where("error_reason = ?", filter.Reason)
	}
	var rows []models.OutboxDLQ
	return rows, query.Find(&rows).Error
}

// Requeue resets the original outbox row so the dispatcher picks it up on its
// next poll, and drops the dead-letter entry. Both happen in one transaction.
func (r *DLQRepository) Requeue(ctx context.Context, eventID uuid.UUID) error {
	return r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := repo.FirstOrNil[models.OutboxDLQ](tx.Where("event_id = ?", eventID))
		if err != nil {
			return err
		}
		if entry == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "event is not dead-lettered")
		}
		reset := tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if reset.Error != nil {
			return reset.Error
		}
		if reset.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "outbox row is missing or already published")
		}
		return tx.Delete(&models.OutboxDLQ{}, "id = ?", entry.ID).Error
	})
}
