package domain

import "errors"

// ErrorKind classifies recoverable tool-level failures. These are downgraded
// to structured result payloads at the dispatcher boundary and fed back to
// the model; they never abort the orchestration loop.
type ErrorKind string

const (
	ErrKindToolNotFound        ErrorKind = "ToolNotFound"
	ErrKindToolInvalid         ErrorKind = "ToolInvalid"
	ErrKindInvocationFailure   ErrorKind = "ToolInvocationFailure"
	ErrKindInvalidArgument     ErrorKind = "InvalidArgument"
	ErrKindInvalidAction       ErrorKind = "InvalidAction"
	ErrKindResourceUnavailable ErrorKind = "ResourceUnavailable"
)

// Fatal orchestration conditions. These terminate the current run and are
// surfaced to the user with no automatic retry.
var (
	// ErrRecursionExhausted signals a tool-use loop that did not converge
	// within the recursion budget.
	ErrRecursionExhausted = errors.New("recursion budget exhausted")

	// ErrUnhandledStopReason signals a stop reason outside the handled set.
	ErrUnhandledStopReason = errors.New("unhandled stop reason")

	// ErrEmptyToolUse signals a tool_use stop reason whose turn carried no
	// tool invocation requests.
	ErrEmptyToolUse = errors.New("tool_use response with no tool requests")
)
