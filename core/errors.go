package core

import (
	"encoding/json"
	"fmt"
)

// FetchErrorKind classifies terminal fetch failures.
type FetchErrorKind string

const (
	FetchNetwork    FetchErrorKind = "network"
	FetchTimeout    FetchErrorKind = "timeout"
	FetchHTTPStatus FetchErrorKind = "http-status"
	FetchCanceled   FetchErrorKind = "canceled"
)

// FetchError is the terminal failure of a fetch. It is recorded on the
// page rather than aborting the run.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == FetchHTTPStatus:
		return fmt.Sprintf("%s: unexpected status %d for %s", e.Kind, e.StatusCode, e.URL)
	case e.Err != nil:
		return fmt.Sprintf("%s: fetching %s: %v", e.Kind, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s: fetching %s", e.Kind, e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *FetchError) Retryable() bool {
	return e.Kind == FetchNetwork || e.Kind == FetchTimeout
}

// MarshalJSON keeps the cause readable in reports.
func (e *FetchError) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind       FetchErrorKind `json:"kind"`
		StatusCode int            `json:"status_code,omitempty"`
		Attempts   int            `json:"attempts,omitempty"`
		Message    string         `json:"message"`
	}{e.Kind, e.StatusCode, e.Attempts, e.Error()}
	return json.Marshal(out)
}
