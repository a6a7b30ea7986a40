package corebank

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	FailureConnectivity FailureKind = "CONNECTIVITY"
	FailureProtocol     FailureKind = "PROTOCOL"
	FailureTimeout      FailureKind = "TIMEOUT"
)

// CallError means the procedure produced no usable answer; the posting state is unknown to the caller.
type CallError struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("corebank %s failure (http %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("corebank %s failure: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func IsCallError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce)
}
