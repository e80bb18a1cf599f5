package vfox

import "errors"

// Errors returned by the runtime.
var (
	// ErrPluginNotFound indicates the plugin directory or its metadata.lua is missing.
	ErrPluginNotFound = errors.New("vfox plugin not found")

	// ErrInvalidMetadata indicates metadata.lua did not define a PLUGIN table.
	ErrInvalidMetadata = errors.New("metadata.lua must define a PLUGIN table")

	// ErrInvalidResult indicates a hook returned a value of the wrong shape.
	ErrInvalidResult = errors.New("invalid hook result")

	// ErrClosed indicates the runtime has been closed.
	ErrClosed = errors.New("vfox runtime is closed")
)
