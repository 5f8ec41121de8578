package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the runtime does not know the requested resource.
// Callers branch on it to tell absence apart from runtime failure.
var ErrNotFound = errors.New("not found in runtime")

// ErrRecordNotFound reports that no persisted record exists for a container.
var ErrRecordNotFound = errors.New("container record not found")

// ErrNoAvailablePort reports an exhausted port scan window.
var ErrNoAvailablePort = errors.New("no available port in range")

// RuntimeError wraps a failure returned by the container runtime API for an
// operation that did reach the runtime.
type RuntimeError struct {
	Op  string
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime %s: %v", e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// ProvisionError wraps the first failure of the ordered provisioning
// sequence. Resources created by earlier steps are left in place; there is
// no rollback.
type ProvisionError struct {
	Step string
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s: %v", e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// ValidationError reports a rejected input value before any side effect.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}
