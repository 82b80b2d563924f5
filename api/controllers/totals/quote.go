package totals

import (
	"net/http"
	"time"

	"github.com/angelmondragon/retailerp-backend/api/requests"
	"github.com/angelmondragon/retailerp-backend/api/responses"
	"github.com/angelmondragon/retailerp-backend/api/validators"
	internaltotals "github.com/angelmondragon/retailerp-backend/internal/totals"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/metrics"
)

type recomputeRecorder interface {
	ObserveRecompute(screen, source string, took time.Duration, clamps int)
}

type quoteRequest struct {
	Screen      string               `json:"screen" validate:"required,order_screen"`
	Lines       []requests.Line      `json:"lines" validate:"max=500,dive"`
	Adjustments requests.Adjustments `json:"adjustments"`
}

// Quote recomputes an order without storing anything. Stock ceilings come from
// the rows themselves, as last seen by the client.
func Quote(advisoryTTL time.Duration, recorder recomputeRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		screen, err := requests.ParseScreen(req.Screen)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adj, err := req.Adjustments.ToAdjustments()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		calc := internaltotals.ForScreen(screen, advisoryTTL)
		started := time.Now()
		result := calc.Recompute(requests.LineItems(req.Lines), nil, adj)
		if recorder != nil {
			recorder.ObserveRecompute(string(screen), metrics.SourceQuote, time.Since(started), len(result.Advisories))
		}
		responses.WriteSuccess(w, result.View())
	}
}
