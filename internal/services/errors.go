package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying inside a worker (network
	// hiccups, busy services).
	ErrTransient = errors.New("transient failure")
	// ErrTimeout marks an external call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrExternalService marks a terminal rejection from an external
	// service (unsupported media, malformed input).
	ErrExternalService = errors.New("external service error")
	// ErrValidation marks input that can never succeed as given.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or inconsistent configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing item or resource.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable marks the archive store being unreachable; the whole
	// operation is safe to retry since nothing was committed.
	ErrUnavailable = errors.New("store unavailable")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a stage error should be retried with backoff
// before the item is marked failed.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Reason extracts the human-readable portion of a wrapped stage error for
// persistence in the archive store.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}
