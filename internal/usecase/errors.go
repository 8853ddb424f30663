package usecase

import (
	"fmt"
	"strings"
)

// ClientInputError reports a malformed trigger. Callers map it to HTTP 400.
type ClientInputError struct {
	Field  string
	Reason string
}

func (e *ClientInputError) Error() string {
	if e.Field == "" {
		return "invalid trigger: " + e.Reason
	}
	return fmt.Sprintf("invalid trigger: %s %s", e.Field, e.Reason)
}

// DataShapeError reports a well-formed trigger whose record lacks required data.
// It is not a server fault.
type DataShapeError struct {
	Fields []string
}

func (e *DataShapeError) Error() string {
	return "invalid signal record: " + strings.Join(e.Fields, "; ")
}

// DependencyError wraps a failure of the subscriber store, ledger, or relay.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// InternalFault is an unexpected failure; its message never reaches clients.
type InternalFault struct {
	Err error
}

func (e *InternalFault) Error() string {
	return fmt.Sprintf("internal fault: %v", e.Err)
}

func (e *InternalFault) Unwrap() error { return e.Err }
