// Package errkind defines the stable error taxonomy shared by every
// component of the automation orchestrator. Domain outcomes use this typed
// kind instead of Go's wrapped-error idiom; transport/IO failures still use
// the standard library's %w wrapping.
package errkind

import "fmt"

// Kind is a stable, machine-checkable error classification.
type Kind string

const (
	TargetNotFound  Kind = "TargetNotFound"
	Timeout         Kind = "Timeout"
	Navigation      Kind = "Navigation"
	Driver          Kind = "Driver"
	MissingVariable Kind = "MissingVariable"
	Unrecognized    Kind = "Unrecognized"
	Ambiguous       Kind = "Ambiguous"
	ReservedName    Kind = "ReservedName"
	InvalidName     Kind = "InvalidName"
	SchemaMismatch  Kind = "SchemaMismatch"
	Busy            Kind = "Busy"
	Cancelled       Kind = "Cancelled"
	ResourceInit    Kind = "ResourceInit"
	SessionUnknown  Kind = "SessionUnknown"
	UnknownMessage  Kind = "UnknownMessage"
	ConfigError     Kind = "ConfigError"
)

// retryable marks the kinds the spec allows a bounded number of in-step retries for.
var retryable = map[Kind]bool{
	TargetNotFound: true,
	Timeout:        true,
}

// Retryable reports whether k may be retried within the same step.
func Retryable(k Kind) bool { return retryable[k] }

// Error is the structured error carried across every component boundary.
type Error struct {
	Kind    Kind
	Msg     string
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds an Error with no extra context.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithContext attaches diagnostic context (e.g. attempt logs, candidate
// scores) and returns the same Error for chaining.
func (e *Error) WithContext(key string, val any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = val
	return e
}

// As extracts an *Error from err, if any.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}
