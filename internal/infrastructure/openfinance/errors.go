package openfinance

import (
	"fmt"
)

// ProviderRequestError reports a failed provider call. StatusCode is zero
// when no response was received. Payload holds the raw error body.
type ProviderRequestError struct {
	Path       string
	StatusCode int
	ErrorType  string
	ErrorCode  string
	Message    string
	RequestID  string
	Payload    []byte
	Err        error
}

func (e *ProviderRequestError) Error() string {
	switch {
	case e.ErrorCode != "":
		return fmt.Sprintf("provider request %s failed (status %d): %s %s: %s", e.Path, e.StatusCode, e.ErrorType, e.ErrorCode, e.Message)
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("provider request %s failed with status %d: %s", e.Path, e.StatusCode, string(e.Payload))
	case e.StatusCode != 0:
		return fmt.Sprintf("provider request %s failed (status %d): %v", e.Path, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("provider request %s failed: %v", e.Path, e.Err)
	}
}

func (e *ProviderRequestError) Unwrap() error {
	return e.Err
}
