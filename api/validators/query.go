package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
	"github.com/secretoheladeria/heladeria-backend/pkg/pagination"
)

const maxCursorLen = 512

// PageParams reads ?limit= and ?cursor= for keyset-paginated listings.
// A missing limit falls back to the default page size.
func PageParams(r *http.Request) (pagination.Params, error) {
	query := r.URL.Query()
	params := pagination.Params{Limit: pagination.DefaultLimit}

	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, queryError("limit", "must be numeric")
		}
		if limit < 1 || limit > pagination.MaxLimit {
			return params, queryError("limit", "must be between 1 and "+strconv.Itoa(pagination.MaxLimit))
		}
		params.Limit = limit
	}

	cursor := strings.TrimSpace(query.Get("cursor"))
	if len(cursor) > maxCursorLen {
		return params, queryError("cursor", "is invalid")
	}
	params.Cursor = cursor
	return params, nil
}

func queryError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid query parameter").
		WithDetails(map[string]string{field: msg})
}
