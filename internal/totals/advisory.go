package totals

import (
	"fmt"
	"time"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
)

// Advisory is a transient, non-fatal notice for the user. It never stops a
// recompute or a submit.
type Advisory struct {
	Type      enums.AdvisoryType `json:"type"`
	RowID     string             `json:"rowId,omitempty"`
	Message   string             `json:"message"`
	Requested float64            `json:"requested,omitempty"`
	Clamped   float64            `json:"clamped,omitempty"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

// Active reports whether the advisory should still be shown at now.
func (a Advisory) Active(now time.Time) bool {
	return now.Before(a.ExpiresAt)
}

func stockAdvisory(rowID string, requested, stock float64, expiresAt time.Time) Advisory {
	return Advisory{
		Type:      enums.AdvisoryQuantityExceedsStock,
		RowID:     rowID,
		Message:   fmt.Sprintf("quantity exceeds stock: only %g available", stock),
		Requested: requested,
		Clamped:   stock,
		ExpiresAt: expiresAt,
	}
}

// ProductNotFoundAdvisory flags a row whose product lookup came back empty.
func ProductNotFoundAdvisory(rowID, query string, expiresAt time.Time) Advisory {
	return Advisory{
		Type:      enums.AdvisoryProductNotFound,
		RowID:     rowID,
		Message:   fmt.Sprintf("product %q not found", query),
		ExpiresAt: expiresAt,
	}
}

// MergeAdvisories drops expired entries and lets a fresh advisory replace an
// older one for the same row and type.
func MergeAdvisories(existing, fresh []Advisory, now time.Time) []Advisory {
	type key struct {
		kind  enums.AdvisoryType
		rowID string
	}
	merged := make([]Advisory, 0, len(existing)+len(fresh))
	index := map[key]int{}
	for _, group := range [][]Advisory{existing, fresh} {
		for _, adv := range group {
			if !adv.Active(now) {
				continue
			}
			k := key{kind: adv.Type, rowID: adv.RowID}
			if i, ok := index[k]; ok {
				merged[i] = adv
				continue
			}
			index[k] = len(merged)
			merged = append(merged, adv)
		}
	}
	return merged
}

// DropRowAdvisories removes every advisory attached to rowID.
func DropRowAdvisories(list []Advisory, rowID string) []Advisory {
	kept := list[:0:0]
	for _, adv := range list {
		if adv.RowID != rowID {
			kept = append(kept, adv)
		}
	}
	return kept
}

// Tracker holds the advisories of one form.
type Tracker struct {
	items []Advisory
}

// NewTracker seeds a tracker with previously stored advisories.
func NewTracker(items []Advisory) *Tracker {
	return &Tracker{items: append([]Advisory(nil), items...)}
}

// Add merges fresh advisories, replacing older ones for the same row and type.
func (t *Tracker) Add(now time.Time, fresh ...Advisory) {
	t.items = MergeAdvisories(t.items, fresh, now)
}

// DropRow forgets advisories of a removed row.
func (t *Tracker) DropRow(rowID string) {
	t.items = DropRowAdvisories(t.items, rowID)
}

// Prune drops expired advisories and returns what is still active.
func (t *Tracker) Prune(now time.Time) []Advisory {
	t.items = MergeAdvisories(t.items, nil, now)
	out := make([]Advisory, len(t.items))
	copy(out, t.items)
	return out
}
