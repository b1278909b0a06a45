// Package errors provides server-layer error handling for tinyfit: errors
// with stack traces, their HTTP and JSON-RPC classification, and the panic
// recovery middleware.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/copyleftdev/tinyfit/internal/optimization"
)

// Kind classifies an error for transport layers.
type Kind string

const (
	KindInvalid   Kind = "invalid_argument"
	KindMismatch  Kind = "dimension_mismatch"
	KindSingular  Kind = "singular_system"
	KindObjective Kind = "invalid_objective"
	KindNotFound  Kind = "not_found"
	KindInternal  Kind = "internal"
)

// JSON-RPC 2.0 error codes.
const (
	RPCParseError     = -32700
	RPCInvalidRequest = -32600
	RPCMethodNotFound = -32601
	RPCInvalidParams  = -32602
	RPCInternalError  = -32603
	RPCSolverError    = -32000
)

// Error represents an error with context and stack trace.
type Error struct {
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// The component or package where the error occurred
	Component string
	// Kind overrides the classification derived from Err when set
	Kind Kind
	// The stack trace
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Message != "" {
		builder.WriteString(e.Message)
	}

	if e.Operation != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString("operation=")
		builder.WriteString(e.Operation)
	}

	if e.Component != "" {
		if builder.Len() > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("component=")
		builder.WriteString(e.Component)
	}

	if e.Err != nil {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent adds a component to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithKind sets an explicit classification.
func (e *Error) WithKind(kind Kind) *Error {
	e.Kind = kind
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates a new error with a message.
func New(msg string) *Error {
	return &Error{
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Wrap wraps err with a message. The stack of an existing *Error is kept.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}

	e := &Error{Err: err, Message: msg}
	var inner *Error
	if stderrors.As(err, &inner) {
		e.Stack = inner.Stack
	} else {
		e.Stack = getStackTrace()
	}
	return e
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and the constructor
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors/errors.go") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}

// Classify returns the kind of err. An explicit Kind on the outermost
// *Error wins; otherwise the optimization sentinels decide.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var e *Error
	if stderrors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}

	switch {
	case stderrors.Is(err, optimization.ErrDimensionMismatch):
		return KindMismatch
	case stderrors.Is(err, optimization.ErrInvalidArgument):
		return KindInvalid
	case stderrors.Is(err, optimization.ErrSingularSystem):
		return KindSingular
	case stderrors.Is(err, optimization.ErrInvalidObjective):
		return KindObjective
	default:
		return KindInternal
	}
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch Classify(err) {
	case "":
		return http.StatusOK
	case KindInvalid, KindMismatch:
		return http.StatusBadRequest
	case KindSingular, KindObjective:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RPCCode maps err to a JSON-RPC error code.
func RPCCode(err error) int {
	switch Classify(err) {
	case KindInvalid, KindMismatch:
		return RPCInvalidParams
	case KindSingular, KindObjective:
		return RPCSolverError
	case KindNotFound:
		return RPCMethodNotFound
	default:
		return RPCInternalError
	}
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
