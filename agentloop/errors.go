package agentloop

import (
	"errors"
	"fmt"
)

// NameCollisionError is returned when a user action reuses a reserved name or
// the name of another registered action. It is fatal at construction.
type NameCollisionError struct {
	Name     string
	Reserved bool
}

func (e *NameCollisionError) Error() string {
	if e.Reserved {
		return fmt.Sprintf("action %q collides with a reserved action", e.Name)
	}
	return fmt.Sprintf("action %q is already registered", e.Name)
}

// ResponseFormatError reports a completion that is not a valid command.
type ResponseFormatError struct {
	Raw string
	Err error
}

func (e *ResponseFormatError) Error() string { return e.Err.Error() }
func (e *ResponseFormatError) Unwrap() error { return e.Err }

// ActionNotFoundError reports a command naming an unregistered action.
type ActionNotFoundError struct {
	Name string
}

func (e *ActionNotFoundError) Error() string {
	return fmt.Sprintf("no action named %q is available", e.Name)
}

// ActionExecutionError wraps a failure raised while binding or running an action.
type ActionExecutionError struct {
	Action string
	Err    error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("Error executing action. Error message: %v", e.Err)
}

func (e *ActionExecutionError) Unwrap() error { return e.Err }

// ActionSerializationError reports an action result that cannot be encoded as JSON.
type ActionSerializationError struct {
	Action string
	Err    error
}

func (e *ActionSerializationError) Error() string {
	return fmt.Sprintf("result from action %s is not JSON serializable: %v", e.Action, e.Err)
}

func (e *ActionSerializationError) Unwrap() error { return e.Err }

// UnknownVariableError reports a {{name}} reference to a document that is not
// in memory.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("{{%s}} is not a valid file in memory. Please try again.", e.Name)
}

// MemoryWriteError reports a failure to store an action result.
type MemoryWriteError struct {
	Name string
	Err  error
}

func (e *MemoryWriteError) Error() string {
	return fmt.Sprintf("storing result as %s: %v", e.Name, e.Err)
}

func (e *MemoryWriteError) Unwrap() error { return e.Err }

// ReplayError reports the first record of an action log that failed to replay.
type ReplayError struct {
	Step   int
	Action string
	Err    error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay step %d (%s): %v", e.Step, e.Action, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err is a step error the loop feeds back to the
// model instead of stopping.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var (
		format   *ResponseFormatError
		notFound *ActionNotFoundError
		exec     *ActionExecutionError
		ser      *ActionSerializationError
		unknown  *UnknownVariableError
		write    *MemoryWriteError
	)
	switch {
	case errors.As(err, &format), errors.As(err, &notFound), errors.As(err, &exec),
		errors.As(err, &ser), errors.As(err, &unknown), errors.As(err, &write):
		return true
	default:
		return false
	}
}
