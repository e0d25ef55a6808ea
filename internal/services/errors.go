package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrManifest marks manifest documents that are unreachable, unparseable,
	// or missing fields required downstream.
	ErrManifest = errors.New("manifest error")
	// ErrResolutionUnavailable marks a forced resolution absent from the ladder.
	ErrResolutionUnavailable = errors.New("resolution unavailable")
	// ErrConfiguration marks invalid parameter combinations detected before or
	// during a job (e.g. start segment beyond end segment).
	ErrConfiguration = errors.New("configuration error")
	// ErrSegmentFetch marks a segment whose retries were exhausted or that the
	// remote service refused outright.
	ErrSegmentFetch = errors.New("segment fetch error")
	// ErrValidation marks an on-disk segment that failed its integrity check.
	ErrValidation = errors.New("validation error")
	// ErrAssembly marks index gaps during concatenation and muxer failures.
	ErrAssembly = errors.New("assembly error")
	// ErrExternalTool marks non-zero exits from invoked binaries.
	ErrExternalTool = errors.New("external tool error")
	// ErrTransient marks retryable network conditions (timeouts, 5xx).
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error should abort the whole run rather than a
// single job. Only configuration errors raised before any job starts qualify.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// Retryable reports whether a fetch attempt may be repeated.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
