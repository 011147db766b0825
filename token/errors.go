package token

import "fmt"

// ConfigurationError reports missing client credentials.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("OEM credentials not configured: missing %s", e.Missing)
}

// AuthError reports a non-success answer from the identity provider.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("failed to get OAuth token: %d %s", e.StatusCode, e.Body)
}
