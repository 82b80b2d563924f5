package orders

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
)

type fieldError struct {
	Field   string
	Message string
}

func (e fieldError) Error() string {
	return e.Field + ": " + e.Message
}

// validateSubmit collects every problem so the caller can fix them in one pass.
// It normalizes an empty discount type to amount.
func validateSubmit(input *SubmitInput) error {
	var err error
	add := func(field, msg string) {
		err = multierr.Append(err, fieldError{Field: field, Message: msg})
	}

	if !input.Screen.IsValid() {
		add("screen", "must be one of sale, customer, draft, adjustment")
	}
	if input.FormID != "" {
		if _, perr := uuid.Parse(input.FormID); perr != nil {
			add("formId", "must be a uuid")
		}
	}
	if len(input.Lines) == 0 {
		add("lines", "at least one line is required")
	}
	for i, line := range input.Lines {
		prefix := fmt.Sprintf("lines[%d].", i)
		if strings.TrimSpace(line.Name) == "" {
			add(prefix+"name", "is required")
		}
		if line.ProductID != "" {
			if _, perr := uuid.Parse(line.ProductID); perr != nil {
				add(prefix+"productId", "must be a uuid")
			}
		}
		checkNonNegative(add, prefix+"quantity", line.Quantity)
		checkNonNegative(add, prefix+"unitPrice", line.UnitPrice)
		checkNonNegative(add, prefix+"discount", line.Discount)
		checkPercent(add, prefix+"commissionPercent", line.CommissionPercent)
	}

	adj := &input.Adjustments
	if adj.DiscountType == "" {
		adj.DiscountType = enums.DiscountTypeAmount
	}
	if !adj.DiscountType.IsValid() {
		add("adjustments.discountType", "must be percentage or amount")
	}
	checkNonNegative(add, "adjustments.discountAmount", adj.DiscountAmount)
	checkPercent(add, "adjustments.orderTax", adj.OrderTax)
	checkNonNegative(add, "adjustments.shippingCharges", adj.ShippingCharges)
	checkNonNegative(add, "adjustments.paymentAmount", adj.PaymentAmount)
	return err
}

func checkNonNegative(add func(string, string), field string, v float64) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		add(field, "must be a finite number")
	case v < 0:
		add(field, "must not be negative")
	}
}

func checkPercent(add func(string, string), field string, v float64) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		add(field, "must be a finite number")
	case v < 0 || v > 100:
		add(field, "must be between 0 and 100")
	}
}

// validationError turns combined field errors into a VALIDATION_ERROR with
// a field to message map.
func validationError(err error) error {
	details := map[string]string{}
	for _, e := range multierr.Errors(err) {
		if fe, ok := e.(fieldError); ok {
			details[fe.Field] = fe.Message
			continue
		}
		details["_"] = e.Error()
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "order is invalid").WithDetails(details)
}
