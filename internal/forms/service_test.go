package forms

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/retailerp-backend/internal/catalog"
	"github.com/angelmondragon/retailerp-backend/internal/livesync"
	"github.com/angelmondragon/retailerp-backend/internal/totals"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
)

type stubCatalog struct {
	items map[string]catalog.Item
	err   error
}

func (s stubCatalog) Lookup(_ context.Context, id string) (catalog.Item, error) {
	if s.err != nil {
		return catalog.Item{}, s.err
	}
	if item, ok := s.items[id]; ok {
		return item, nil
	}
	return catalog.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s stubCatalog) FindByName(_ context.Context, name string) (catalog.Item, error) {
	if s.err != nil {
		return catalog.Item{}, s.err
	}
	for _, item := range s.items {
		if strings.EqualFold(item.Name, name) {
			return item, nil
		}
	}
	return catalog.Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []livesync.Event
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, _ enums.Collection, event livesync.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func floatPtr(v float64) *float64 { return &v }

func newTestService(t *testing.T, cat stubCatalog, opts ...Option) (Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	svc, err := NewService(NewMemoryStore(), cat, 3*time.Second, nil, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, clock
}

var widget = catalog.Item{ID: "p-1", SKU: "W-1", Name: "Widget", Price: 100, Stock: floatPtr(5)}

func TestOpenStartsWithZeroTotals(t *testing.T) {
	svc, _ := newTestService(t, stubCatalog{})
	form, err := svc.Open(context.Background(), enums.OrderScreenSale)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if form.ID == "" {
		t.Fatal("expected form id")
	}
	if form.Totals != (totals.Totals{}) {
		t.Fatalf("expected zero totals, got %+v", form.Totals)
	}
	if _, err := svc.Open(context.Background(), enums.OrderScreen("kiosk")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddRowResolvesCatalogAndClampsStock(t *testing.T) {
	svc, _ := newTestService(t, stubCatalog{items: map[string]catalog.Item{widget.ID: widget}})
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenSale)

	form, err := svc.AddRow(ctx, form.ID, RowInput{ProductID: widget.ID, Quantity: floatPtr(8)})
	if err != nil {
		t.Fatalf("add row: %v", err)
	}
	if len(form.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(form.Lines))
	}
	line := form.Lines[0]
	if line.Name != "Widget" || line.UnitPrice != 100 {
		t.Fatalf("catalog fields not filled: %+v", line)
	}
	if line.Quantity != 5 {
		t.Fatalf("expected quantity clamped to 5, got %v", line.Quantity)
	}
	if form.Totals.ItemsTotal != 500 {
		t.Fatalf("expected items total 500, got %v", form.Totals.ItemsTotal)
	}
	if len(form.Advisories) != 1 || form.Advisories[0].Type != enums.AdvisoryQuantityExceedsStock {
		t.Fatalf("expected stock advisory, got %+v", form.Advisories)
	}
}

func TestAddRowUnknownProductAddsManualRow(t *testing.T) {
	svc, _ := newTestService(t, stubCatalog{})
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenSale)

	form, err := svc.AddRow(ctx, form.ID, RowInput{Name: "Gadget", UnitPrice: floatPtr(20), Quantity: floatPtr(2)})
	if err != nil {
		t.Fatalf("add row: %v", err)
	}
	if len(form.Lines) != 1 || form.Lines[0].ProductID != "" {
		t.Fatalf("expected manual row, got %+v", form.Lines)
	}
	if form.Totals.ItemsTotal != 40 {
		t.Fatalf("expected items total 40, got %v", form.Totals.ItemsTotal)
	}
	if len(form.Advisories) != 1 || form.Advisories[0].Type != enums.AdvisoryProductNotFound {
		t.Fatalf("expected product_not_found advisory, got %+v", form.Advisories)
	}
}

func TestAddRowCatalogFailureIsReturned(t *testing.T) {
	svc, _ := newTestService(t, stubCatalog{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")})
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenSale)

	if _, err := svc.AddRow(ctx, form.ID, RowInput{ProductID: "p-1"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestRemoveRowKeepsOtherRowState(t *testing.T) {
	svc, _ := newTestService(t, stubCatalog{})
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenSale)

	form, _ = svc.AddRow(ctx, form.ID, RowInput{})
	form, _ = svc.AddRow(ctx, form.ID, RowInput{})
	first, second := form.Lines[0].RowID, form.Lines[1].RowID

	form, err := svc.UpdateRow(ctx, form.ID, second, RowPatch{SearchText: strPtr("wid"), DropdownOpen: boolPtr(true)})
	if err != nil {
		t.Fatalf("update row: %v", err)
	}
	form, err = svc.RemoveRow(ctx, form.ID, first)
	if err != nil {
		t.Fatalf("remove row: %v", err)
	}
	if len(form.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(form.Lines))
	}
	remaining := form.Lines[0]
	if remaining.RowID != second || remaining.SearchText != "wid" || !remaining.DropdownOpen {
		t.Fatalf("row state moved: %+v", remaining)
	}
}

func TestRemoveRowDropsItsAdvisories(t *testing.T) {
	svc, _ := newTestService(t, stubCatalog{})
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenSale)
	form, _ = svc.AddRow(ctx, form.ID, RowInput{Name: "Unknown"})
	if len(form.Advisories) != 1 {
		t.Fatalf("expected one advisory, got %d", len(form.Advisories))
	}

	form, err := svc.RemoveRow(ctx, form.ID, form.Lines[0].RowID)
	if err != nil {
		t.Fatalf("remove row: %v", err)
	}
	if len(form.Advisories) != 0 {
		t.Fatalf("expected advisories dropped, got %+v", form.Advisories)
	}
}

func TestUpdateRowUnknownRow(t *testing.T) {
	svc, _ := newTestService(t, stubCatalog{})
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenSale)

	if _, err := svc.UpdateRow(ctx, form.ID, "missing", RowPatch{}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.RemoveRow(ctx, form.ID, "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateRowSwitchesToManual(t *testing.T) {
	svc, _ := newTestService(t, stubCatalog{items: map[string]catalog.Item{widget.ID: widget}})
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenSale)
	form, _ = svc.AddRow(ctx, form.ID, RowInput{ProductID: widget.ID})

	form, err := svc.UpdateRow(ctx, form.ID, form.Lines[0].RowID, RowPatch{ProductID: strPtr(""), Quantity: floatPtr(50)})
	if err != nil {
		t.Fatalf("update row: %v", err)
	}
	line := form.Lines[0]
	if line.ProductID != "" || line.CurrentStock != nil {
		t.Fatalf("expected manual row, got %+v", line)
	}
	if line.Quantity != 50 {
		t.Fatalf("manual row should not be clamped, got %v", line.Quantity)
	}
}

func TestSetAdjustmentsRecomputesTotals(t *testing.T) {
	svc, _ := newTestService(t, stubCatalog{})
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenSale)
	form, _ = svc.AddRow(ctx, form.ID, RowInput{Name: "Manual", Quantity: floatPtr(10), UnitPrice: floatPtr(100)})

	form, err := svc.SetAdjustments(ctx, form.ID, totals.Adjustments{
		DiscountType:    enums.DiscountTypePercentage,
		DiscountAmount:  10,
		OrderTax:        10,
		ShippingCharges: 20,
		PaymentAmount:   1200,
	})
	if err != nil {
		t.Fatalf("set adjustments: %v", err)
	}
	if !near(form.Totals.TotalPayable, 1010) {
		t.Fatalf("expected total payable 1010, got %v", form.Totals.TotalPayable)
	}
	if !near(form.Totals.ChangeReturn, 190) || form.Totals.Balance != 0 {
		t.Fatalf("unexpected balance/change: %+v", form.Totals)
	}

	if _, err := svc.SetAdjustments(ctx, form.ID, totals.Adjustments{DiscountType: "bogus"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetPrunesExpiredAdvisories(t *testing.T) {
	svc, clock := newTestService(t, stubCatalog{})
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenSale)
	form, _ = svc.AddRow(ctx, form.ID, RowInput{Name: "Unknown"})

	clock.t = clock.t.Add(4 * time.Second)
	got, err := svc.Get(ctx, form.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Advisories) != 0 {
		t.Fatalf("expected expired advisory pruned, got %+v", got.Advisories)
	}
}

func TestDiscardRemovesFormAndBroadcasts(t *testing.T) {
	b := &recordingBroadcaster{}
	svc, _ := newTestService(t, stubCatalog{}, WithBroadcaster(b))
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenDraft)

	if err := svc.Discard(ctx, form.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := svc.Get(ctx, form.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found after discard, got %v", err)
	}
	if err := svc.Discard(ctx, form.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second discard, got %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) != 2 {
		t.Fatalf("expected open and discard events, got %d", len(b.events))
	}
	if b.events[1].Type != EventFormDiscarded || b.events[1].Collection != enums.CollectionForms {
		t.Fatalf("unexpected discard event: %+v", b.events[1])
	}
}

func TestFormUpdatedEventCarriesRoundedView(t *testing.T) {
	b := &recordingBroadcaster{}
	svc, _ := newTestService(t, stubCatalog{}, WithBroadcaster(b))
	ctx := context.Background()
	form, _ := svc.Open(ctx, enums.OrderScreenSale)
	if _, err := svc.AddRow(ctx, form.ID, RowInput{Name: "Clip", Quantity: floatPtr(3), UnitPrice: floatPtr(0.1)}); err != nil {
		t.Fatalf("add row: %v", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	last := b.events[len(b.events)-1]
	view, ok := last.Data.(FormView)
	if last.Type != EventFormUpdated || !ok {
		t.Fatalf("expected form.updated with a FormView, got %s %T", last.Type, last.Data)
	}
	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"itemsTotal":0.30`) {
		t.Fatalf("expected 2dp items total, got %s", raw)
	}
}

type failingStore struct{ *MemoryStore }

func (f failingStore) Save(context.Context, *Form) error { return errors.New("redis down") }

func TestStoreFailureIsDependencyError(t *testing.T) {
	svc, err := NewService(failingStore{NewMemoryStore()}, stubCatalog{}, time.Second, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Open(context.Background(), enums.OrderScreenSale); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func near(got, want float64) bool { return math.Abs(got-want) < 1e-9 }

func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool { return &v }
