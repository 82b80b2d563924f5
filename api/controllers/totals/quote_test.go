package totals

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	internaltotals "github.com/angelmondragon/retailerp-backend/internal/totals"
	"github.com/angelmondragon/retailerp-backend/pkg/metrics"
)

type recordedRecompute struct {
	screen string
	source string
	clamps int
}

type stubRecorder struct {
	calls []recordedRecompute
}

func (s *stubRecorder) ObserveRecompute(screen, source string, _ time.Duration, clamps int) {
	s.calls = append(s.calls, recordedRecompute{screen: screen, source: source, clamps: clamps})
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) internaltotals.Result {
	t.Helper()
	var body struct {
		Data internaltotals.Result `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body.Data
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQuoteClampsToRowStock(t *testing.T) {
	recorder := &stubRecorder{}
	body := `{
		"screen": "sale",
		"lines": [{"rowId": "r1", "name": "Mug", "quantity": 10, "unitPrice": 100, "commissionPercent": 10, "currentStock": 4}],
		"adjustments": {"discountType": "Amount", "orderTax": 10, "paymentAmount": 500}
	}`
	rec := httptest.NewRecorder()
	Quote(3*time.Second, recorder, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/totals/quote", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	result := decodeResult(t, rec)
	if len(result.Lines) != 1 || result.Lines[0].Quantity != 4 {
		t.Fatalf("expected quantity clamped to 4, got %+v", result.Lines)
	}
	if !near(result.Lines[0].Subtotal, 360) {
		t.Fatalf("expected subtotal 360, got %v", result.Lines[0].Subtotal)
	}
	if !near(result.Totals.TotalPayable, 396) {
		t.Fatalf("expected total payable 396, got %v", result.Totals.TotalPayable)
	}
	if !near(result.Totals.ChangeReturn, 104) {
		t.Fatalf("expected change 104, got %v", result.Totals.ChangeReturn)
	}
	if len(result.Advisories) != 1 {
		t.Fatalf("expected one advisory, got %d", len(result.Advisories))
	}
	if len(recorder.calls) != 1 || recorder.calls[0].source != metrics.SourceQuote || recorder.calls[0].clamps != 1 {
		t.Fatalf("unexpected metrics %+v", recorder.calls)
	}
}

func TestQuoteAdjustmentScreenHasNoCommission(t *testing.T) {
	body := `{"screen": "adjustment", "lines": [{"name": "Bolt", "quantity": 2, "unitPrice": 5, "commissionPercent": 50}]}`
	rec := httptest.NewRecorder()
	Quote(time.Second, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	result := decodeResult(t, rec)
	if result.Lines[0].CommissionAmount != 0 || !near(result.Totals.ItemsTotal, 10) {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Advisories == nil {
		t.Fatalf("advisories should render as an empty list")
	}
}

func TestQuoteRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown screen":   `{"screen": "kiosk", "lines": []}`,
		"negative price":   `{"screen": "sale", "lines": [{"name": "x", "quantity": 1, "unitPrice": -1}]}`,
		"commission > 100": `{"screen": "sale", "lines": [{"name": "x", "quantity": 1, "commissionPercent": 101}]}`,
		"discount type":    `{"screen": "sale", "adjustments": {"discountType": "bogus"}}`,
	}
	for name, body := range cases {
		rec := httptest.NewRecorder()
		Quote(time.Second, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, rec.Code)
		}
	}
}

func TestQuoteRendersAmountsAtTwoDecimals(t *testing.T) {
	body := `{"screen": "sale", "lines": [{"rowId": "r1", "name": "Clip", "quantity": 3, "unitPrice": 0.1}], "adjustments": {"orderTax": 7}}`
	rec := httptest.NewRecorder()
	Quote(time.Second, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	raw := rec.Body.String()
	for _, want := range []string{
		`"itemsTotal":0.30`,
		`"taxAmount":0.02`,
		`"totalPayable":0.32`,
		`"balance":0.32`,
		`"subtotal":0.30`,
		`"unitPrice":0.10`,
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("expected %s in %s", want, raw)
		}
	}
	if strings.Contains(raw, "0.30000000000000004") {
		t.Fatalf("unrounded float leaked into response: %s", raw)
	}
}

func TestQuoteAssignsMissingRowIDs(t *testing.T) {
	body := `{"screen": "sale", "lines": [{"name": "Mug", "quantity": 9, "unitPrice": 2, "currentStock": 3}, {"name": "Cup", "quantity": 1, "unitPrice": 1}]}`
	rec := httptest.NewRecorder()
	Quote(time.Second, nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	result := decodeResult(t, rec)
	if len(result.Lines) != 2 || result.Lines[0].RowID == "" || result.Lines[0].RowID == result.Lines[1].RowID {
		t.Fatalf("expected distinct generated row ids, got %+v", result.Lines)
	}
	if len(result.Advisories) != 1 || result.Advisories[0].RowID != result.Lines[0].RowID {
		t.Fatalf("advisory should point at the clamped row, got %+v", result.Advisories)
	}
}
