// Package validation checks URL-shaped configuration values.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// URLValidationError names the offending setting and value.
type URLValidationError struct {
	Field   string
	Message string
	URL     string
}

func (e URLValidationError) Error() string {
	return fmt.Sprintf("%s: %s (url: %s)", e.Field, e.Message, e.URL)
}

// ValidateURL accepts absolute http(s) URLs. Empty values pass; callers enforce presence.
func ValidateURL(urlString, fieldName string, requireHTTPS bool) error {
	if urlString == "" {
		return nil
	}
	_, err := parseHTTPURL(urlString, fieldName, requireHTTPS)
	return err
}

// ValidateOrigin accepts a scheme and host with nothing after them, as browsers send in Origin.
func ValidateOrigin(urlString, fieldName string, requireHTTPS bool) error {
	if urlString == "" {
		return nil
	}
	parsed, err := parseHTTPURL(urlString, fieldName, requireHTTPS)
	if err != nil {
		return err
	}

	switch {
	case parsed.Path != "" && parsed.Path != "/":
		return URLValidationError{Field: fieldName, Message: "origin must not contain a path", URL: urlString}
	case parsed.RawQuery != "":
		return URLValidationError{Field: fieldName, Message: "origin must not contain query parameters", URL: urlString}
	case parsed.Fragment != "":
		return URLValidationError{Field: fieldName, Message: "origin must not contain a fragment", URL: urlString}
	}
	return nil
}

func parseHTTPURL(urlString, fieldName string, requireHTTPS bool) (*url.URL, error) {
	parsed, err := url.Parse(urlString)
	if err != nil {
		return nil, URLValidationError{Field: fieldName, Message: "invalid URL format", URL: urlString}
	}
	if parsed.Scheme == "" {
		return nil, URLValidationError{Field: fieldName, Message: "URL must include a scheme (http:// or https://)", URL: urlString}
	}
	if parsed.Host == "" {
		return nil, URLValidationError{Field: fieldName, Message: "URL must include a host", URL: urlString}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, URLValidationError{Field: fieldName, Message: "URL scheme must be http or https", URL: urlString}
	}
	if requireHTTPS && scheme != "https" {
		return nil, URLValidationError{Field: fieldName, Message: "URL must use HTTPS in production", URL: urlString}
	}
	return parsed, nil
}
