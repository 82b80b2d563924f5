package totals

import (
	"time"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
)

// DefaultAdvisoryTTL is how long a stock-clamp advisory stays visible.
const DefaultAdvisoryTTL = 3 * time.Second

// Options selects which optional steps the calculator applies.
type Options struct {
	// Commission enables per-line commission. When off, commission amounts are zero.
	Commission bool
	// TaxShipping adds shipping to the base before tax instead of after it.
	TaxShipping bool
	AdvisoryTTL time.Duration
}

var screenProfiles = map[enums.OrderScreen]Options{
	enums.OrderScreenSale:       {Commission: true},
	enums.OrderScreenCustomer:   {Commission: true},
	enums.OrderScreenDraft:      {Commission: true},
	enums.OrderScreenAdjustment: {},
}

// ProfileFor returns the calculator options used by an order-entry screen.
// Unknown screens get the sale profile.
func ProfileFor(screen enums.OrderScreen) Options {
	if opts, ok := screenProfiles[screen]; ok {
		return opts
	}
	return screenProfiles[enums.OrderScreenSale]
}
