package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
)

type openFormBody struct {
	Screen string  `json:"screen" validate:"required,oneof=sale customer draft adjustment"`
	Tax    float64 `json:"tax" validate:"gte=0,lte=100"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"screen":"sale","tax":10}`))
	var body openFormBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Screen != "sale" || body.Tax != 10 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"screen":"kiosk","tax":120}`))
	var body openFormBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	if _, ok := details["screen"]; !ok {
		t.Fatalf("expected screen detail, got %v", details)
	}
	if details["tax"] != "must be less than or equal to 100" {
		t.Fatalf("unexpected tax detail %q", details["tax"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"screen":"sale","extra":1}`))
	var body openFormBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=30&bad=x&big=500&dup=1&dup=2&blank=%20", nil)
	cases := []struct {
		key     string
		want    int
		wantErr bool
	}{
		{key: "limit", want: 30},
		{key: "missing", want: 25},
		{key: "blank", want: 25},
		{key: "bad", wantErr: true},
		{key: "big", wantErr: true},
		{key: "dup", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseQueryInt(req, tc.key, 25, 1, 100)
		if tc.wantErr {
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("%s: expected validation error, got %d %v", tc.key, got, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%s: expected %d, got %d %v", tc.key, tc.want, got, err)
		}
	}
}

func TestParseQueryIntReportsBounds(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=0", nil)
	_, err := ParseQueryInt(req, "limit", 25, 1, 100)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, _ := typed.Details().(map[string]any)
	if details["field"] != "limit" || details["min"] != 1 || details["max"] != 100 {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestSanitizeStringStripsControlsAndCapsRunes(t *testing.T) {
	if got := SanitizeString("  Blue\tMug\r\n ", 0); got != "BlueMug" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
	if got := SanitizeString("Café crème", 4); got != "Café" {
		t.Fatalf("expected rune-safe cap, got %q", got)
	}
}

func TestQueryString(t *testing.T) {
	req := httptest.NewRequest("GET", "/?q=%20%20mug%09", nil)
	if got := QueryString(req, "q", 10); got != "mug" {
		t.Fatalf("unexpected query string %q", got)
	}
}

type orderBody struct {
	Screen string     `json:"screen" validate:"required,order_screen"`
	Lines  []lineBody `json:"lines" validate:"dive"`
}

type lineBody struct {
	Quantity float64 `json:"quantity" validate:"gte=0"`
}

func TestDecodeJSONBodyKeysNestedErrorsByPath(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"screen":"sale","lines":[{"quantity":1},{"quantity":-2}]}`))
	var body orderBody
	typed := pkgerrors.As(DecodeJSONBody(req, &body))
	if typed == nil {
		t.Fatalf("expected typed error")
	}
	details, _ := typed.Details().(map[string]string)
	if details["lines[1].quantity"] != "must be greater than or equal to 0" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownScreen(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"screen":"kiosk"}`))
	var body orderBody
	typed := pkgerrors.As(DecodeJSONBody(req, &body))
	if typed == nil {
		t.Fatalf("expected typed error")
	}
	details, _ := typed.Details().(map[string]string)
	if details["screen"] != "must be one of [sale customer draft adjustment]" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyMalformedInput(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"empty":    {body: ``, want: "request body is empty"},
		"syntax":   {body: `{"screen":}`, want: "malformed JSON"},
		"type":     {body: `{"screen":5}`, want: `field "screen" must be string`},
		"trailing": {body: `{"screen":"sale"}{}`, want: "single JSON object"},
		"unknown":  {body: `{"screen":"sale","x":1}`, want: `unknown field "x"`},
	}
	for name, tc := range cases {
		req := httptest.NewRequest("POST", "/", strings.NewReader(tc.body))
		var body orderBody
		typed := pkgerrors.As(DecodeJSONBody(req, &body))
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, typed)
		}
		if !strings.Contains(typed.Message(), tc.want) {
			t.Fatalf("%s: message %q does not contain %q", name, typed.Message(), tc.want)
		}
	}
}

func TestDecodeJSONBodyEnforcesSizeLimit(t *testing.T) {
	big := `{"screen":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(big))
	var body orderBody
	typed := pkgerrors.As(DecodeJSONBody(req, &body))
	if typed == nil || !strings.Contains(typed.Message(), "exceeds") {
		t.Fatalf("expected size error, got %v", typed)
	}
}
