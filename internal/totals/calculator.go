// Package totals derives line subtotals, commissions and order totals for every
// order-entry screen. Arithmetic is unrounded; callers round with pkg/money
// when persisting or rendering.
package totals

import (
	"math"
	"time"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
)

// Calculator is safe for concurrent use. It holds no per-order state.
type Calculator struct {
	opts Options
	now  func() time.Time
}

// Option customizes a Calculator.
type Option func(*Calculator)

// WithClock overrides the clock used to stamp advisory expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

func New(opts Options, options ...Option) *Calculator {
	if opts.AdvisoryTTL <= 0 {
		opts.AdvisoryTTL = DefaultAdvisoryTTL
	}
	c := &Calculator{opts: opts, now: time.Now}
	for _, apply := range options {
		apply(c)
	}
	return c
}

// ForScreen builds a calculator with the screen's profile.
func ForScreen(screen enums.OrderScreen, advisoryTTL time.Duration, options ...Option) *Calculator {
	opts := ProfileFor(screen)
	opts.AdvisoryTTL = advisoryTTL
	return New(opts, options...)
}

// Options returns the effective options.
func (c *Calculator) Options() Options {
	return c.opts
}

// RecomputeLine clamps quantity to a known, positive catalog stock and derives
// commission and subtotal. A nil stock means no ceiling.
func (c *Calculator) RecomputeLine(line LineItem, catalogStock *float64) (LineItem, *Advisory) {
	line.Quantity = finite(line.Quantity)
	line.UnitPrice = finite(line.UnitPrice)
	line.Discount = finite(line.Discount)
	line.CommissionPercent = finite(line.CommissionPercent)

	var advisory *Advisory
	if catalogStock != nil {
		stock := finite(*catalogStock)
		line.CurrentStock = &stock
		if stock > 0 && line.Quantity > stock {
			adv := stockAdvisory(line.RowID, line.Quantity, stock, c.now().Add(c.opts.AdvisoryTTL))
			advisory = &adv
			line.Quantity = stock
		}
	}

	discounted := line.Quantity*line.UnitPrice - line.Discount
	commission := 0.0
	if c.opts.Commission {
		commission = line.CommissionPercent / 100 * discounted
	}
	line.CommissionAmount = commission
	line.Subtotal = discounted - commission
	return line, advisory
}

// RecomputeOrder derives the totals from scratch. Steps run in a fixed order:
// sum subtotals, discount, tax, shipping, then compare with the payment.
func (c *Calculator) RecomputeOrder(lines []LineItem, adj Adjustments) Totals {
	var t Totals
	for _, line := range lines {
		t.ItemsTotal += finite(line.Subtotal)
		t.TotalCommission += finite(line.CommissionAmount)
	}

	discountAmount := finite(adj.DiscountAmount)
	orderTax := finite(adj.OrderTax)
	shipping := finite(adj.ShippingCharges)
	payment := finite(adj.PaymentAmount)

	if adj.DiscountType == enums.DiscountTypePercentage {
		t.Discount = t.ItemsTotal * discountAmount / 100
	} else {
		t.Discount = discountAmount
	}

	t.TaxableBase = t.ItemsTotal - t.Discount
	t.ShippingCharges = shipping
	if c.opts.TaxShipping {
		t.TaxableBase += shipping
		t.TotalPayable = t.TaxableBase * (1 + orderTax/100)
	} else {
		t.TotalPayable = t.TaxableBase*(1+orderTax/100) + shipping
	}
	t.TaxAmount = t.TaxableBase * orderTax / 100

	t.PaymentAmount = payment
	t.Balance = math.Max(0, t.TotalPayable-payment)
	t.ChangeReturn = math.Max(0, payment-t.TotalPayable)
	return t
}

// Recompute runs RecomputeLine over every row, then RecomputeOrder. stock maps
// product ids to authoritative stock; rows without an entry keep their own
// CurrentStock as the ceiling. The input slice is not modified.
func (c *Calculator) Recompute(lines []LineItem, stock map[string]float64, adj Adjustments) Result {
	out := make([]LineItem, len(lines))
	var advisories []Advisory
	for i, line := range lines {
		ceiling := line.CurrentStock
		if line.ProductID != "" {
			if s, ok := stock[line.ProductID]; ok {
				ceiling = &s
			}
		}
		updated, adv := c.RecomputeLine(line, ceiling)
		out[i] = updated
		if adv != nil {
			advisories = append(advisories, *adv)
		}
	}
	return Result{
		Lines:      out,
		Totals:     c.RecomputeOrder(out, adj),
		Advisories: advisories,
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
