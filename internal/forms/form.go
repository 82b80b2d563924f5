package forms

import (
	"time"

	"github.com/angelmondragon/retailerp-backend/internal/totals"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
)

// Form is a server-held order-entry session. Totals are derived and replaced
// on every mutation.
type Form struct {
	ID          string             `json:"id"`
	Screen      enums.OrderScreen  `json:"screen"`
	Lines       []totals.LineItem  `json:"lines"`
	Adjustments totals.Adjustments `json:"adjustments"`
	Totals      totals.Totals      `json:"totals"`
	Advisories  []totals.Advisory  `json:"advisories"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// FormView is the response and broadcast shape of a form, with currency
// fields at two decimals.
type FormView struct {
	ID          string                 `json:"id"`
	Screen      enums.OrderScreen      `json:"screen"`
	Lines       []totals.LineView      `json:"lines"`
	Adjustments totals.AdjustmentsView `json:"adjustments"`
	Totals      totals.TotalsView      `json:"totals"`
	Advisories  []totals.Advisory      `json:"advisories"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

func (f *Form) View() FormView {
	advisories := f.Advisories
	if advisories == nil {
		advisories = []totals.Advisory{}
	}
	return FormView{
		ID:          f.ID,
		Screen:      f.Screen,
		Lines:       totals.LineViews(f.Lines),
		Adjustments: f.Adjustments.View(),
		Totals:      f.Totals.View(),
		Advisories:  advisories,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func (f *Form) rowIndex(rowID string) int {
	for i := range f.Lines {
		if f.Lines[i].RowID == rowID {
			return i
		}
	}
	return -1
}

// RowInput adds a row. ProductID wins over Name when both are set.
type RowInput struct {
	ProductID         string
	Name              string
	Quantity          *float64
	UnitPrice         *float64
	Discount          float64
	CommissionPercent float64
	SearchText        string
}

// RowPatch updates only the fields that are set. An empty ProductID turns
// the row back into a manual row.
type RowPatch struct {
	ProductID         *string
	Name              *string
	Quantity          *float64
	UnitPrice         *float64
	Discount          *float64
	CommissionPercent *float64
	SearchText        *string
	DropdownOpen      *bool
}
