package plugin

import (
	"errors"
	"strings"
)

// Error kinds. Every *Error matches exactly one of these with errors.Is.
var (
	// ErrResolution indicates no valid source URL could be derived.
	ErrResolution = errors.New("cannot resolve plugin source")

	// ErrValidation indicates a rejected plugin source, such as a local path.
	ErrValidation = errors.New("invalid plugin source")

	// ErrRepository indicates a clone, checkout, or query failure.
	ErrRepository = errors.New("plugin repository operation failed")

	// ErrFilesystem indicates a failure to modify the plugin directory.
	ErrFilesystem = errors.New("plugin filesystem operation failed")

	// ErrNotInstalled indicates an operation that requires an installed plugin.
	ErrNotInstalled = errors.New("plugin is not installed")

	// ErrRuntimeExecution indicates a failure inside a plugin script.
	ErrRuntimeExecution = errors.New("plugin runtime execution failed")

	// ErrInvalidName indicates an empty or path-like plugin name.
	ErrInvalidName = errors.New("invalid plugin name")
)

// Error is a failure of an operation on a named plugin.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error
	// Plugin is the plugin name.
	Plugin string
	// Target is the path or URL the operation acted on.
	Target string
	// Msg describes the failed step. Defaults to Kind's message.
	Msg string
	// Hint is remediation advice shown on its own line.
	Hint string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("plugin ")
	b.WriteString(e.Plugin)
	b.WriteString(": ")
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Target != "" {
		b.WriteString(" ")
		b.WriteString(e.Target)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
