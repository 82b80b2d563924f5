package enums

import (
	"fmt"
	"slices"
)

// parse matches raw exactly against values. kind names the enum in errors.
func parse[T ~string](values []T, raw, kind string) (T, error) {
	if i := slices.Index(values, T(raw)); i >= 0 {
		return values[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
