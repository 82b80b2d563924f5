package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, map[string]string{"reference": "SALE-000042"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["reference"] != "SALE-000042" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteSuccessUnencodablePayload(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]any{"bad": make(chan int)})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %q", got.Code)
	}
}

func TestWriteErrorMessages(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		wantDetails bool
	}{
		{
			name:        "validation keeps message and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").WithDetails(map[string]string{"lines[0].quantity": "gt"}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "quantity must be positive",
			wantDetails: true,
		},
		{
			name:    "dependency hides internal message",
			err:     pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("dial tcp: refused"), "persist order"),
			status:  http.StatusServiceUnavailable,
			code:    pkgerrors.CodeDependency,
			message: pkgerrors.MetadataFor(pkgerrors.CodeDependency).PublicMessage,
		},
		{
			name:    "untyped becomes internal",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage,
		},
		{
			name:    "nil error still renders",
			err:     nil,
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), logger.Nop(), rec, tc.err)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, rec.Code)
			}
			got := decodeError(t, rec)
			if got.Code != string(tc.code) {
				t.Fatalf("expected code %s got %s", tc.code, got.Code)
			}
			if got.Message != tc.message {
				t.Fatalf("expected message %q got %q", tc.message, got.Message)
			}
			if (got.Details != nil) != tc.wantDetails {
				t.Fatalf("details present = %v, want %v", got.Details != nil, tc.wantDetails)
			}
		})
	}
}

func TestWriteErrorCarriesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-Id", "till-4-0001")
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))

	got := decodeError(t, rec)
	if got.RequestID != "till-4-0001" {
		t.Fatalf("expected request id in envelope, got %q", got.RequestID)
	}
	if got.Message != "order not found" {
		t.Fatalf("unexpected message %q", got.Message)
	}
}
