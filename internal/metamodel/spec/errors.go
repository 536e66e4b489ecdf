package spec

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a specification is requested by a name the loader never saw.
var ErrNotFound = errors.New("specification not found")

// UnknownTypeError reports a value or association shape the metamodel cannot handle.
type UnknownTypeError struct {
	Type    string
	Context string
}

func (e *UnknownTypeError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("unknown type: %s", e.Type)
	}
	return fmt.Sprintf("unknown type %s: %s", e.Type, e.Context)
}

// ModelError reports a domain class or member that violates the programming model.
type ModelError struct {
	Spec   string
	Member string
	Err    error
}

func (e *ModelError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("model error in %s: %v", e.Spec, e.Err)
	}
	return fmt.Sprintf("model error in %s#%s: %v", e.Spec, e.Member, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
