package translate

import (
	"errors"
	"fmt"
)

// Error kinds reported by backend adapters. The pipeline never surfaces these
// to its callers; it uses them to label logs and metrics.
var (
	// ErrProviderUnavailable means the backend has no client or credentials configured.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderRequestFailed means the backend was called and the call failed.
	ErrProviderRequestFailed = errors.New("provider request failed")
	// ErrEmptyResult means the backend answered but produced no text.
	ErrEmptyResult = errors.New("provider returned empty result")
	// ErrDetectionFailed means the text could not be classified.
	ErrDetectionFailed = errors.New("language detection failed")
)

// ProviderError ties a failure to the backend that produced it.
type ProviderError struct {
	Provider string
	Kind     error
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func unavailable(provider string) error {
	return &ProviderError{Provider: provider, Kind: ErrProviderUnavailable}
}

func requestFailed(provider string, err error) error {
	return &ProviderError{Provider: provider, Kind: ErrProviderRequestFailed, Err: err}
}

func emptyResult(provider string) error {
	return &ProviderError{Provider: provider, Kind: ErrEmptyResult}
}

// ErrorKind returns a short label for err suitable for a metrics label or log field.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, ErrEmptyResult):
		return "empty"
	case errors.Is(err, ErrDetectionFailed):
		return "detection_failed"
	case errors.Is(err, ErrProviderRequestFailed):
		return "request_failed"
	default:
		return "error"
	}
}
