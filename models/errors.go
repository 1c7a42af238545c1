package models

import "fmt"

// ConfigError reports missing or malformed source configuration.
// It is never retried; the user has to fix the configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Message
}

// FetchError reports a failed retrieval of one source.
type FetchError struct {
	SourceID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch: sheet %s: %v", e.SourceID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ValidationError reports a raw table whose shape no longer matches the
// expected export layout.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Message
}

// DataUnavailableError means no canonical dataset could be produced and
// none exists on disk.
type DataUnavailableError struct {
	Cause error
}

func (e *DataUnavailableError) Error() string {
	if e.Cause == nil {
		return "no listening data available"
	}
	return fmt.Sprintf("no listening data available: %v", e.Cause)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Cause
}
