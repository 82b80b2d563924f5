package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox/payloads"
)

type fakeWriter struct {
	rows []OrderTotalsRow
	err  error
}

func (f *fakeWriter) InsertOrderTotals(_ context.Context, row OrderTotalsRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func TestRouterBuildsOrderTotalsRow(t *testing.T) {
	writer := &fakeWriter{}
	router, err := NewRouter(writer, nil)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	customer := "Ada"
	orderID := uuid.New()
	payload, _ := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:      orderID,
		Reference:    "SO-20260301-K7Q2MZ",
		Screen:       enums.OrderScreenSale,
		CustomerName: &customer,
		DiscountType: enums.DiscountTypePercentage,
		OrderTax:     "10.00",
		LineCount:    2,
		Totals:       payloads.OrderTotalsSnapshot{ItemsTotal: "1000.00", TotalPayable: "1010.00", Balance: "10.00"},
	})
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err = router.Handle(context.Background(), Envelope{
		EventID:    "evt-1",
		EventType:  enums.EventOrderCreated,
		Version:    1,
		OccurredAt: occurred,
		Payload:    payload,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(writer.rows))
	}
	row := writer.rows[0]
	if row.OrderID != orderID.String() || row.TotalPayable != "1010.00" || row.LineCount != 2 {
		t.Fatalf("unexpected row: %+v", row)
	}
	if !row.CustomerName.Valid || row.CustomerName.StringVal != "Ada" {
		t.Fatalf("customer name not carried: %+v", row.CustomerName)
	}
	if !row.OccurredAt.Equal(occurred) {
		t.Fatalf("unexpected occurred at %v", row.OccurredAt)
	}

	values, insertID, err := row.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if insertID != "evt-1" || values["balance"] != "10.00" {
		t.Fatalf("unexpected saved row: %s %v", insertID, values)
	}
}

func TestRouterUnsupportedEvent(t *testing.T) {
	router, _ := NewRouter(&fakeWriter{}, nil)
	err := router.Handle(context.Background(), Envelope{EventType: "order_voided", Version: 1})
	if !errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
	err = router.Handle(context.Background(), Envelope{EventType: enums.EventOrderCreated, Version: 2})
	if !errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported error for unknown version, got %v", err)
	}
}

func TestRouterPropagatesWriterError(t *testing.T) {
	router, _ := NewRouter(&fakeWriter{err: errors.New("quota")}, nil)
	payload, _ := json.Marshal(payloads.OrderCreatedEvent{OrderID: uuid.New()})
	err := router.Handle(context.Background(), Envelope{EventType: enums.EventOrderCreated, Version: 1, Payload: payload})
	if err == nil || errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected writer error, got %v", err)
	}
}
