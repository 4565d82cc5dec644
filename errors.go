package junction

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPattern is wrapped by every *MalformedPatternError.
	ErrMalformedPattern = errors.New("junction: malformed route pattern")
	// ErrPathConflict is wrapped by every *PathConflictError.
	ErrPathConflict = errors.New("junction: route conflict")
	// ErrUnsupportedPath is wrapped by every *UnsupportedPathError. It is only
	// visible to callers that drive a matcher strategy directly.
	ErrUnsupportedPath = errors.New("junction: pattern shape not supported by strategy")
	// ErrNoStrategy reports that no matcher strategy accepted every registered route.
	ErrNoStrategy = errors.New("junction: no matcher strategy accepted all routes")
	// ErrRouterSealed is returned by registrations issued after the router resolved its strategy.
	ErrRouterSealed = errors.New("junction: router is already compiled")
	// ErrNextCalledTwice is raised when a handler invokes its continuation more than once.
	ErrNextCalledTwice = errors.New("junction: next() called multiple times")
)

// MalformedPatternError reports a route pattern that does not follow the
// pattern grammar.
type MalformedPatternError struct {
	Pattern string
	Reason  string
}

func (e *MalformedPatternError) Error() string {
	return fmt.Sprintf("%s: %s [%s]", ErrMalformedPattern, e.Reason, e.Pattern)
}

func (e *MalformedPatternError) Unwrap() error {
	return ErrMalformedPattern
}

func newMalformed(pattern, reason string) *MalformedPatternError {
	return &MalformedPatternError{Pattern: pattern, Reason: reason}
}

// PathConflictError reports a route registered twice for the same method and
// the same pattern shape. Parameter names do not distinguish shapes.
type PathConflictError struct {
	Method   string
	Pattern  string
	Existing string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("%s: %s %s collides with %s", ErrPathConflict, e.Method, e.Pattern, e.Existing)
}

func (e *PathConflictError) Unwrap() error {
	return ErrPathConflict
}

// UnsupportedPathError is raised by a matcher strategy that cannot represent
// the shape of a registered pattern.
type UnsupportedPathError struct {
	Strategy string
	Pattern  string
	Reason   string
}

func (e *UnsupportedPathError) Error() string {
	return fmt.Sprintf("%s: %s cannot serve %s: %s", ErrUnsupportedPath, e.Strategy, e.Pattern, e.Reason)
}

func (e *UnsupportedPathError) Unwrap() error {
	return ErrUnsupportedPath
}

// PanicError carries a value recovered from a panicking handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("junction: handler panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
