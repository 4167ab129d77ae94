package auth

import "strings"

// TokenFromHeader extracts the token from an "Authorization: Bearer <token>" value.
func TokenFromHeader(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", missingHeaderError()
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", malformedHeaderError()
	}
	return parts[1], nil
}
