package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailerp-backend/internal/livesync"
	"github.com/angelmondragon/retailerp-backend/internal/totals"
	"github.com/angelmondragon/retailerp-backend/pkg/db"
	"github.com/angelmondragon/retailerp-backend/pkg/db/models"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/metrics"
	"github.com/angelmondragon/retailerp-backend/pkg/money"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/retailerp-backend/pkg/pagination"
)

const (
	EventOrderCreated = "order.created"

	serviceName         = "api"
	maxReferenceRetries = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (string, error)
}

type stockSource interface {
	StockFor(ctx context.Context, ids []string) (map[string]float64, error)
}

type formDiscarder interface {
	Discard(ctx context.Context, id string) error
}

type submitRecorder interface {
	ObserveRecompute(screen, source string, took time.Duration, clamps int)
	IncSubmit(screen, outcome string)
}

// Service submits and reads orders.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error)
	Get(ctx context.Context, id string) (*OrderDetail, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// Deps wires the collaborators of the order service. Broadcaster, Forms and
// Metrics are optional.
type Deps struct {
	Repo        Repository
	Tx          txRunner
	Outbox      outboxEmitter
	Stock       stockSource
	Broadcaster livesync.Broadcaster
	Forms       formDiscarder
	Metrics     submitRecorder
	Logger      *logger.Logger
	AdvisoryTTL time.Duration
	Now         func() time.Time
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxEmitter
	stock       stockSource
	broadcaster livesync.Broadcaster
	forms       formDiscarder
	metrics     submitRecorder
	logg        *logger.Logger
	advisoryTTL time.Duration
	now         func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, errors.New("orders repository required")
	}
	if deps.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	if deps.Stock == nil {
		return nil, errors.New("stock source required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{
		repo:        deps.Repo,
		tx:          deps.Tx,
		outbox:      deps.Outbox,
		stock:       deps.Stock,
		broadcaster: deps.Broadcaster,
		forms:       deps.Forms,
		metrics:     deps.Metrics,
		logg:        deps.Logger,
		advisoryTTL: deps.AdvisoryTTL,
		now:         deps.Now,
	}, nil
}

// Submit re-derives the order from authoritative stock and persists it with
// its outbox event in one transaction. Nothing is retried on failure.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	ctx = s.logg.WithScreen(ctx, string(input.Screen))
	if err := validateSubmit(&input); err != nil {
		s.recordSubmit(input.Screen, metrics.OutcomeValidation)
		return nil, validationError(err)
	}

	lines := make([]totals.LineItem, len(input.Lines))
	var productIDs []string
	for i, line := range input.Lines {
		line.RowID = strings.TrimSpace(line.RowID)
		if line.RowID == "" {
			line.RowID = uuid.NewString()
		}
		line.CurrentStock = nil
		lines[i] = line
		if line.ProductID != "" {
			productIDs = append(productIDs, line.ProductID)
		}
	}

	stock, err := s.stock.StockFor(ctx, productIDs)
	if err != nil {
		s.recordSubmit(input.Screen, metrics.OutcomeFailure)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}

	calc := totals.ForScreen(input.Screen, s.advisoryTTL, totals.WithClock(s.now))
	started := time.Now()
	result := calc.Recompute(lines, stock, input.Adjustments)
	if s.metrics != nil {
		s.metrics.ObserveRecompute(string(input.Screen), metrics.SourceSubmit, time.Since(started), len(result.Advisories))
	}

	order := buildOrder(input, result, s.now().UTC())
	var eventID string
	for attempt := 1; ; attempt++ {
		order.Reference, err = NewReference(order.CreatedAt)
		if err != nil {
			s.recordSubmit(input.Screen, metrics.OutcomeFailure)
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reference")
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
				return err
			}
			id, err := s.outbox.Emit(ctx, tx, orderCreatedEvent(order))
			eventID = id
			return err
		})
		if err == nil || attempt >= maxReferenceRetries || !db.IsUniqueViolation(err, "") {
			break
		}
		order.ID = uuid.Nil
		for i := range order.Lines {
			order.Lines[i].ID = uuid.Nil
		}
	}
	if err != nil {
		s.recordSubmit(input.Screen, metrics.OutcomeFailure)
		s.logg.Error(ctx, "order submit failed", err)
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order reference collided, resubmit")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order could not be saved")
	}

	ctx = s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"reference": order.Reference,
		"event_id":  eventID,
	})
	s.logg.Info(ctx, "order submitted")
	s.recordSubmit(input.Screen, metrics.OutcomeSuccess)

	detail := detailFromModel(*order)
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(ctx, enums.CollectionOrders, livesync.Event{
			Type:       EventOrderCreated,
			Collection: enums.CollectionOrders,
			ID:         detail.ID,
			Data:       detail.OrderSummary,
			At:         order.CreatedAt,
		})
	}
	if input.FormID != "" && s.forms != nil {
		if err := s.forms.Discard(ctx, input.FormID); err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(s.logg.WithFormID(ctx, input.FormID), "discard submitted form failed")
		}
	}

	advisories := result.Advisories
	if advisories == nil {
		advisories = []totals.Advisory{}
	}
	return &SubmitResult{Order: detail, Advisories: advisories}, nil
}

func (s *service) Get(ctx context.Context, id string) (*OrderDetail, error) {
	orderID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	detail := detailFromModel(*order)
	return &detail, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listQuery{
		Query: strings.TrimSpace(params.Query),
		Limit: params.Limit,
		Sort:  SortCreatedAt,
	}
	if raw := strings.TrimSpace(params.Screen); raw != "" {
		screen, err := enums.ParseOrderScreen(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid screen")
		}
		query.Screen = screen
	}
	switch SortField(strings.TrimSpace(params.Sort)) {
	case "", SortCreatedAt:
	case SortTotalPayable:
		query.Sort = SortTotalPayable
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sort").
			WithDetails(map[string]any{"sort": params.Sort})
	}
	direction, err := pagination.ParseDirection(params.Direction)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid direction")
	}
	query.Direction = direction
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		if query.Sort == SortTotalPayable {
			if _, err := decimal.NewFromString(cursor.Key); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
			}
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	items := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, summaryFromModel(row))
	}
	result := &ListResult{Items: items}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) recordSubmit(screen enums.OrderScreen, outcome string) {
	if s.metrics != nil {
		s.metrics.IncSubmit(string(screen), outcome)
	}
}

func buildOrder(input SubmitInput, result totals.Result, now time.Time) *models.Order {
	adj := input.Adjustments
	t := result.Totals
	order := &models.Order{
		ID:              uuid.New(),
		Screen:          input.Screen,
		CustomerName:    trimmedOrNil(input.CustomerName),
		DiscountType:    adj.DiscountType,
		DiscountAmount:  money.Round(adj.DiscountAmount),
		OrderTax:        money.Round(adj.OrderTax),
		ShippingCharges: money.Round(adj.ShippingCharges),
		PaymentAmount:   money.Round(adj.PaymentAmount),
		ItemsTotal:      money.Round(t.ItemsTotal),
		TotalCommission: money.Round(t.TotalCommission),
		Discount:        money.Round(t.Discount),
		TaxableBase:     money.Round(t.TaxableBase),
		TaxAmount:       money.Round(t.TaxAmount),
		TotalPayable:    money.Round(t.TotalPayable),
		Balance:         money.Round(t.Balance),
		ChangeReturn:    money.Round(t.ChangeReturn),
		LineCount:       len(result.Lines),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.FormID != "" {
		if formID, err := uuid.Parse(input.FormID); err == nil {
			order.FormID = &formID
		}
	}
	order.Lines = make([]models.OrderLineItem, 0, len(result.Lines))
	for i, line := range result.Lines {
		item := models.OrderLineItem{
			RowID:             line.RowID,
			Position:          i,
			Name:              strings.TrimSpace(line.Name),
			Quantity:          decimal.NewFromFloat(line.Quantity).Round(3),
			UnitPrice:         money.Round(line.UnitPrice),
			Discount:          money.Round(line.Discount),
			CommissionPercent: money.Round(line.CommissionPercent),
			CommissionAmount:  money.Round(line.CommissionAmount),
			Subtotal:          money.Round(line.Subtotal),
			CreatedAt:         now,
		}
		if line.ProductID != "" {
			if productID, err := uuid.Parse(line.ProductID); err == nil {
				item.ProductID = &productID
			}
		}
		order.Lines = append(order.Lines, item)
	}
	return order
}

func orderCreatedEvent(order *models.Order) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{Service: serviceName, Screen: order.Screen},
		OccurredAt:    order.CreatedAt,
		Data: payloads.OrderCreatedEvent{
			OrderID:      order.ID,
			Reference:    order.Reference,
			Screen:       order.Screen,
			CustomerName: order.CustomerName,
			DiscountType: order.DiscountType,
			OrderTax:     order.OrderTax.StringFixed(money.Places),
			LineCount:    order.LineCount,
			Totals: payloads.OrderTotalsSnapshot{
				ItemsTotal:      order.ItemsTotal.StringFixed(money.Places),
				TotalCommission: order.TotalCommission.StringFixed(money.Places),
				Discount:        order.Discount.StringFixed(money.Places),
				TaxAmount:       order.TaxAmount.StringFixed(money.Places),
				ShippingCharges: order.ShippingCharges.StringFixed(money.Places),
				TotalPayable:    order.TotalPayable.StringFixed(money.Places),
				PaymentAmount:   order.PaymentAmount.StringFixed(money.Places),
				Balance:         order.Balance.StringFixed(money.Places),
				ChangeReturn:    order.ChangeReturn.StringFixed(money.Places),
			},
			CreatedAt: order.CreatedAt,
		},
	}
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
