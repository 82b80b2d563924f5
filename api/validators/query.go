package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
)

// QueryString reads a sanitized query parameter. Repeated keys keep the
// first value.
func QueryString(r *http.Request, key string, maxLen int) string {
	return SanitizeString(r.URL.Query().Get(key), maxLen)
}

// ParseQueryInt reads an optional integer in [lo, hi], returning def when
// the parameter is absent or blank. A repeated parameter is rejected rather
// than silently picking one.
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	values := r.URL.Query()[key]
	if len(values) > 1 {
		return 0, queryError(key, "query parameter given more than once", nil)
	}
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return def, nil
	}

	value, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return 0, queryError(key, "query parameter must be an integer", nil)
	}
	if err := validate.Var(value, fmt.Sprintf("gte=%d,lte=%d", lo, hi)); err != nil {
		return 0, queryError(key, "query parameter out of range", map[string]any{"min": lo, "max": hi})
	}
	return value, nil
}

func queryError(key, message string, bounds map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range bounds {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}
