package agent

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/mwiater/compliance-agent/internal/providers"
)

// ErrorKind classifies why an agent run failed.
type ErrorKind string

const (
	KindOverloaded      ErrorKind = "overloaded"
	KindTimeout         ErrorKind = "timeout"
	KindCanceled        ErrorKind = "canceled"
	KindUpstream        ErrorKind = "upstream"
	KindMalformedOutput ErrorKind = "malformed_output"
	KindStepLimit       ErrorKind = "step_limit"
)

// CallError is the structured failure of one agent run. It is recoverable:
// the caller records it and moves on.
type CallError struct {
	Kind ErrorKind
	Step int
	Err  error
}

func (e *CallError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("agent step %d: %s: %v", e.Step, e.Kind, e.Err)
	}
	return fmt.Sprintf("agent: %s: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Classify wraps err in a CallError, picking the kind from the error chain.
// A nil err yields nil and an existing CallError is returned unchanged.
func Classify(err error, step int) *CallError {
	if err == nil {
		return nil
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr
	}

	kind := KindUpstream
	var statusErr *providers.StatusError
	var decodeErr *providers.DecodeError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &statusErr):
		if statusErr.Overloaded() {
			kind = KindOverloaded
		}
	case errors.As(err, &decodeErr):
		kind = KindMalformedOutput
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}
	return &CallError{Kind: kind, Step: step, Err: err}
}
