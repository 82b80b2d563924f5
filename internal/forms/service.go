package forms

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailerp-backend/internal/catalog"
	"github.com/angelmondragon/retailerp-backend/internal/livesync"
	"github.com/angelmondragon/retailerp-backend/internal/totals"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/metrics"
)

const (
	EventFormUpdated   = "form.updated"
	EventFormDiscarded = "form.discarded"
)

// Service manages order-entry forms. Every mutation recomputes the whole form.
type Service interface {
	Open(ctx context.Context, screen enums.OrderScreen) (*Form, error)
	Get(ctx context.Context, id string) (*Form, error)
	AddRow(ctx context.Context, id string, input RowInput) (*Form, error)
	UpdateRow(ctx context.Context, id, rowID string, patch RowPatch) (*Form, error)
	RemoveRow(ctx context.Context, id, rowID string) (*Form, error)
	SetAdjustments(ctx context.Context, id string, adj totals.Adjustments) (*Form, error)
	Discard(ctx context.Context, id string) error
}

type catalogResolver interface {
	Lookup(ctx context.Context, id string) (catalog.Item, error)
	FindByName(ctx context.Context, name string) (catalog.Item, error)
}

type recomputeRecorder interface {
	ObserveRecompute(screen, source string, took time.Duration, clamps int)
}

// Option customizes the service.
type Option func(*service)

// WithClock overrides the clock used for timestamps and advisory expiry.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBroadcaster announces form changes on the forms collection.
func WithBroadcaster(b livesync.Broadcaster) Option {
	return func(s *service) { s.broadcaster = b }
}

// WithMetrics records recompute timings.
func WithMetrics(m recomputeRecorder) Option {
	return func(s *service) { s.metrics = m }
}

type service struct {
	store       Store
	catalog     catalogResolver
	advisoryTTL time.Duration
	broadcaster livesync.Broadcaster
	metrics     recomputeRecorder
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the form service.
func NewService(store Store, resolver catalogResolver, advisoryTTL time.Duration, logg *logger.Logger, opts ...Option) (Service, error) {
	if store == nil {
		return nil, errors.New("form store required")
	}
	if resolver == nil {
		return nil, errors.New("catalog resolver required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &service{
		store:       store,
		catalog:     resolver,
		advisoryTTL: advisoryTTL,
		logg:        logg,
		now:         time.Now,
	}
	for _, apply := range opts {
		apply(s)
	}
	return s, nil
}

func (s *service) Open(ctx context.Context, screen enums.OrderScreen) (*Form, error) {
	if !screen.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid screen").
			WithDetails(map[string]any{"screen": string(screen)})
	}
	now := s.now().UTC()
	form := &Form{
		ID:          uuid.NewString(),
		Screen:      screen,
		Lines:       []totals.LineItem{},
		Adjustments: totals.Adjustments{DiscountType: enums.DiscountTypeAmount},
		Advisories:  []totals.Advisory{},
		CreatedAt:   now,
	}
	return s.commit(ctx, form, nil)
}

func (s *service) Get(ctx context.Context, id string) (*Form, error) {
	form, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	form.Advisories = totals.NewTracker(form.Advisories).Prune(s.now())
	return form, nil
}

func (s *service) AddRow(ctx context.Context, id string, input RowInput) (*Form, error) {
	form, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	row := totals.LineItem{
		RowID:             uuid.NewString(),
		Name:              strings.TrimSpace(input.Name),
		Quantity:          1,
		Discount:          input.Discount,
		CommissionPercent: input.CommissionPercent,
		SearchText:        input.SearchText,
	}
	if input.Quantity != nil {
		row.Quantity = *input.Quantity
	}

	var fresh []totals.Advisory
	productID := strings.TrimSpace(input.ProductID)
	if productID != "" || row.Name != "" {
		item, found, err := s.resolve(ctx, productID, row.Name)
		if err != nil {
			return nil, err
		}
		if found {
			fillFromCatalog(&row, item)
		} else {
			query := productID
			if query == "" {
				query = row.Name
			}
			fresh = append(fresh, totals.ProductNotFoundAdvisory(row.RowID, query, s.now().Add(s.advisoryTTL)))
		}
	}
	if input.UnitPrice != nil {
		row.UnitPrice = *input.UnitPrice
	}

	form.Lines = append(form.Lines, row)
	return s.commit(ctx, form, fresh)
}

func (s *service) UpdateRow(ctx context.Context, id, rowID string, patch RowPatch) (*Form, error) {
	form, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	idx := form.rowIndex(rowID)
	if idx < 0 {
		return nil, rowNotFound(rowID)
	}
	row := form.Lines[idx]

	var fresh []totals.Advisory
	if patch.ProductID != nil {
		productID := strings.TrimSpace(*patch.ProductID)
		if productID == "" {
			row.ProductID = ""
			row.CurrentStock = nil
		} else {
			item, found, err := s.resolve(ctx, productID, "")
			if err != nil {
				return nil, err
			}
			if found {
				fillFromCatalog(&row, item)
				row.SearchText = ""
				row.DropdownOpen = false
			} else {
				fresh = append(fresh, totals.ProductNotFoundAdvisory(row.RowID, productID, s.now().Add(s.advisoryTTL)))
			}
		}
	}
	if patch.Name != nil {
		row.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Quantity != nil {
		row.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		row.UnitPrice = *patch.UnitPrice
	}
	if patch.Discount != nil {
		row.Discount = *patch.Discount
	}
	if patch.CommissionPercent != nil {
		row.CommissionPercent = *patch.CommissionPercent
	}
	if patch.SearchText != nil {
		row.SearchText = *patch.SearchText
	}
	if patch.DropdownOpen != nil {
		row.DropdownOpen = *patch.DropdownOpen
	}

	form.Lines[idx] = row
	return s.commit(ctx, form, fresh)
}

func (s *service) RemoveRow(ctx context.Context, id, rowID string) (*Form, error) {
	form, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	idx := form.rowIndex(rowID)
	if idx < 0 {
		return nil, rowNotFound(rowID)
	}
	form.Lines = append(form.Lines[:idx], form.Lines[idx+1:]...)

	tracker := totals.NewTracker(form.Advisories)
	tracker.DropRow(rowID)
	form.Advisories = tracker.Prune(s.now())
	return s.commit(ctx, form, nil)
}

func (s *service) SetAdjustments(ctx context.Context, id string, adj totals.Adjustments) (*Form, error) {
	if adj.DiscountType == "" {
		adj.DiscountType = enums.DiscountTypeAmount
	}
	if !adj.DiscountType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type").
			WithDetails(map[string]any{"discountType": string(adj.DiscountType)})
	}
	form, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	form.Adjustments = adj
	return s.commit(ctx, form, nil)
}

func (s *service) Discard(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard form")
	}
	s.broadcast(ctx, livesync.Event{Type: EventFormDiscarded, ID: id, At: s.now().UTC()})
	return nil
}

func (s *service) load(ctx context.Context, id string) (*Form, error) {
	form, err := s.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, ErrFormNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "form not found").
				WithDetails(map[string]any{"formId": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load form")
	}
	return form, nil
}

// commit recomputes the form, merges advisories, then saves and announces it.
func (s *service) commit(ctx context.Context, form *Form, fresh []totals.Advisory) (*Form, error) {
	now := s.now()
	calc := totals.ForScreen(form.Screen, s.advisoryTTL, totals.WithClock(s.now))

	started := time.Now()
	result := calc.Recompute(form.Lines, nil, form.Adjustments)
	if s.metrics != nil {
		s.metrics.ObserveRecompute(string(form.Screen), metrics.SourceForm, time.Since(started), len(result.Advisories))
	}

	tracker := totals.NewTracker(form.Advisories)
	tracker.Add(now, append(fresh, result.Advisories...)...)

	form.Lines = result.Lines
	form.Totals = result.Totals
	form.Advisories = tracker.Prune(now)
	form.UpdatedAt = now.UTC()

	if err := s.store.Save(ctx, form); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save form")
	}
	s.broadcast(ctx, livesync.Event{Type: EventFormUpdated, ID: form.ID, Data: form.View(), At: form.UpdatedAt})
	return form, nil
}

// resolve prefers the product id. found is false only for unknown products;
// any other catalog failure is returned.
func (s *service) resolve(ctx context.Context, productID, name string) (catalog.Item, bool, error) {
	var (
		item catalog.Item
		err  error
	)
	if productID != "" {
		item, err = s.catalog.Lookup(ctx, productID)
	} else {
		item, err = s.catalog.FindByName(ctx, name)
	}
	if err == nil {
		return item, true, nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return catalog.Item{}, false, nil
	}
	return catalog.Item{}, false, err
}

func (s *service) broadcast(ctx context.Context, event livesync.Event) {
	if s.broadcaster == nil {
		return
	}
	event.Collection = enums.CollectionForms
	s.broadcaster.Broadcast(ctx, enums.CollectionForms, event)
}

func fillFromCatalog(row *totals.LineItem, item catalog.Item) {
	row.ProductID = item.ID
	row.Name = item.Name
	row.UnitPrice = item.Price
	row.CurrentStock = nil
	if item.Stock != nil {
		stock := *item.Stock
		row.CurrentStock = &stock
	}
}

func rowNotFound(rowID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "row not found").
		WithDetails(map[string]any{"rowId": rowID})
}
