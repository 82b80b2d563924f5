package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox/registry"
)

// ErrUnsupportedEventType marks events this consumer does not report on.
var ErrUnsupportedEventType = errors.New("unsupported event type")

// Writer receives built report rows.
type Writer interface {
	InsertOrderTotals(ctx context.Context, row OrderTotalsRow) error
}

// Router decodes envelopes and dispatches them to per-event handlers.
type Router struct {
	decoders *registry.DecoderRegistry
	writer   Writer
	logg     *logger.Logger
	now      func() time.Time
}

func NewRouter(writer Writer, logg *logger.Logger) (*Router, error) {
	if writer == nil {
		return nil, errors.New("reporting writer required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	decoders := registry.NewDecoderRegistry().
		Register(enums.EventOrderCreated, 1, registry.JSON[payloads.OrderCreatedEvent]())
	return &Router{decoders: decoders, writer: writer, logg: logg, now: time.Now}, nil
}

// Handle returns ErrUnsupportedEventType for events without a decoder.
func (r *Router) Handle(ctx context.Context, envelope Envelope) error {
	decoded, err := r.decoders.Decode(envelope.EventType, envelope.Version, envelope.Payload)
	if errors.Is(err, registry.ErrNoDecoder) {
		return fmt.Errorf("%w: %v", ErrUnsupportedEventType, err)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", envelope.EventType, err)
	}

	switch event := decoded.(type) {
	case *payloads.OrderCreatedEvent:
		row := buildOrderTotalsRow(envelope, event, r.now().UTC())
		logCtx := r.logg.WithFields(r.logg.WithOrderID(ctx, row.OrderID), map[string]any{"reference": row.Reference})
		if err := r.writer.InsertOrderTotals(logCtx, row); err != nil {
			r.logg.Error(logCtx, "failed to insert order totals row", err)
			return err
		}
		r.logg.Info(logCtx, "order totals row inserted")
		return nil
	default:
		return fmt.Errorf("%w: unexpected payload %T", ErrUnsupportedEventType, decoded)
	}
}

func buildOrderTotalsRow(envelope Envelope, event *payloads.OrderCreatedEvent, ingestedAt time.Time) OrderTotalsRow {
	occurred := envelope.OccurredAt
	if occurred.IsZero() {
		occurred = event.CreatedAt
	}
	row := OrderTotalsRow{
		EventID:         envelope.EventID,
		OrderID:         event.OrderID.String(),
		Reference:       event.Reference,
		Screen:          string(event.Screen),
		DiscountType:    string(event.DiscountType),
		OrderTax:        event.OrderTax,
		LineCount:       event.LineCount,
		ItemsTotal:      event.Totals.ItemsTotal,
		TotalCommission: event.Totals.TotalCommission,
		Discount:        event.Totals.Discount,
		TaxAmount:       event.Totals.TaxAmount,
		ShippingCharges: event.Totals.ShippingCharges,
		TotalPayable:    event.Totals.TotalPayable,
		PaymentAmount:   event.Totals.PaymentAmount,
		Balance:         event.Totals.Balance,
		ChangeReturn:    event.Totals.ChangeReturn,
		OccurredAt:      occurred.UTC(),
		IngestedAt:      ingestedAt,
	}
	if event.CustomerName != nil {
		row.CustomerName = bigquery.NullString{StringVal: *event.CustomerName, Valid: true}
	}
	return row
}
