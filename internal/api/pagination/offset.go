package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/courserate-sg/server/internal/validation"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// Page is a skip/limit window over an ordered result set.
type Page struct {
	Skip  int
	Limit int
}

// Default returns the first page at the default size.
func Default() Page {
	return Page{Skip: 0, Limit: DefaultLimit}
}

// Parse reads skip (>= 0, default 0) and limit (1..100, default 100).
func Parse(values url.Values) (Page, error) {
	page := Default()

	if raw := strings.TrimSpace(values.Get("skip")); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil {
			return page, validation.ParamError{Field: "skip", Message: "must be a number"}
		}
		if skip < 0 {
			return page, validation.ParamError{Field: "skip", Message: "must be greater than or equal to 0"}
		}
		page.Skip = skip
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return page, validation.ParamError{Field: "limit", Message: "must be a number"}
		}
		if limit < 1 || limit > MaxLimit {
			return page, validation.ParamError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxLimit)}
		}
		page.Limit = limit
	}

	return page, nil
}
