package core

import (
	"errors"
	"fmt"
)

// ErrAllSourcesUnavailable is the orchestrator's only terminal failure: every
// registered adapter failed and there is no corpus to synthesize from.
var ErrAllSourcesUnavailable = errors.New("all content sources unavailable")

// ErrModelOutputInvalid marks generation output that could not be parsed or
// repaired into a schema-conformant brief. It is always recovered internally
// via retry or the deterministic fallback, never surfaced to callers.
var ErrModelOutputInvalid = errors.New("model output invalid")

// SourceUnavailableError wraps any per-adapter failure: network error, rate
// limit, non-2xx status, malformed payload or timeout. The aggregator catches
// it, logs the adapter as degraded and proceeds with the rest.
type SourceUnavailableError struct {
	Adapter string
	Err     error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Adapter, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// sourceUnavailable wraps err for the named adapter, passing through errors
// that are already classified.
func sourceUnavailable(adapter string, err error) error {
	var su *SourceUnavailableError
	if errors.As(err, &su) {
		return err
	}
	return &SourceUnavailableError{Adapter: adapter, Err: err}
}
