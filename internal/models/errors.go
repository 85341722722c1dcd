package models

import "fmt"

// ValidationError reports caller input that fails basic checks. It is surfaced
// before any network attempt is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid request: " + e.Reason }

// ErrEmptyInput is returned when a message is empty after trimming.
var ErrEmptyInput = &ValidationError{Reason: "message text is empty"}

// ConfigError reports a provider that cannot be used because its credential or
// endpoint is not configured. It is never caused by an upstream response.
type ConfigError struct {
	Provider string
	Missing  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s not configured: missing %s", e.Provider, e.Missing)
}

// ProviderError reports a failed upstream attempt: a non-2xx status, a
// transport failure, or a 2xx body with no extractable text. StatusCode is
// zero for the latter two.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ExhaustedError is returned when every entry of a fallback chain has failed.
// It retains the last attempt's error for diagnostics.
type ExhaustedError struct {
	Operation    string
	LastProvider string
	LastErr      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers failed for %s, last attempt (%s): %v",
		e.Operation, e.LastProvider, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }
