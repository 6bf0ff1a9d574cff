package catalog

import (
	"context"
	"errors"
	"fmt"
)

// Error classes a store may report. Stores wrap one of these so the
// pipeline can tell a network failure from a refused or malformed reply.
var (
	ErrTransport    = errors.New("transport failure")
	ErrUnauthorized = errors.New("permission denied by store")
	ErrStore        = errors.New("store reported an error")
	ErrShape        = errors.New("unexpected response shape")

	// ErrSuperseded is returned for a search whose result arrived after a
	// newer search was issued on the same session.
	ErrSuperseded = errors.New("search superseded by a newer query")
)

// PipelineError records which stage failed and for which kind.
type PipelineError struct {
	Op   string // fetch, images, transform
	Kind string
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("catalog %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Classify maps an error to a short label for metrics and logs.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrShape):
		return "shape"
	case errors.Is(err, ErrStore):
		return "store"
	default:
		return "internal"
	}
}

// Banner is the short human-readable message shown next to an empty result.
func Banner(err error) string {
	switch Classify(err) {
	case "transport":
		return "Could not reach the specimen database. Please try again."
	case "unauthorized":
		return "You do not have permission to view these specimens."
	case "shape", "store":
		return "The specimen database returned an unexpected response."
	case "canceled", "superseded":
		return "The search was cancelled."
	default:
		return "Failed to load specimens."
	}
}
