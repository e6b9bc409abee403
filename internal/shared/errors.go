package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")

	// Catalog errors
	ErrNetwork        = fmt.Errorf("network error")
	ErrProvider       = fmt.Errorf("provider error")
	ErrParse          = fmt.Errorf("malformed provider response")
	ErrArtistNotFound = fmt.Errorf("artist not found")
	ErrNoResults      = fmt.Errorf("no results")
	ErrUnsupportedURL = fmt.Errorf("unsupported catalog URL")

	// Pipeline errors
	ErrInvalidTransition     = fmt.Errorf("invalid state transition")
	ErrCollectionUnavailable = fmt.Errorf("collection index unavailable")

	// Output errors
	ErrClipboard = fmt.Errorf("clipboard unavailable")

	// Input validation errors
	ErrInputFormat     = fmt.Errorf("invalid input format")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ProviderError is a non-2xx (or in-band error) response from a catalog provider.
//
// It matches [ErrProvider] with [errors.Is].
type ProviderError struct {
	Provider string
	Status   int
	Code     int
	Message  string
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s returned status %d", ErrProvider, e.Provider, e.Status)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// StatusOf extracts the HTTP status of a wrapped [ProviderError], or 0.
func StatusOf(err error) int {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}

// IsInputError reports whether err was caused by malformed user input.
func IsInputError(err error) bool {
	for _, target := range []error{ErrInputFormat, ErrMissingArgument, ErrInvalidArgument, ErrUnsupportedURL} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err describes an empty lookup rather than a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrArtistNotFound) || errors.Is(err, ErrNoResults)
}
