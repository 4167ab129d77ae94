package validation

import "fmt"

// ParamError reports a query or path parameter that failed to parse.
type ParamError struct {
	Field   string
	Message string
}

func (e ParamError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
