package git

import "errors"

// Error types for git operations.
var (
	// ErrNotRepository indicates the path is not a git working copy.
	ErrNotRepository = errors.New("not a git repository")

	// ErrDestinationNotEmpty indicates a clone target already has content.
	ErrDestinationNotEmpty = errors.New("destination path already exists and is not empty")

	// ErrDetachedHead indicates the working copy has no current branch.
	ErrDetachedHead = errors.New("detached HEAD state")

	// ErrEmptyURL indicates an empty clone URL.
	ErrEmptyURL = errors.New("empty repository URL")
)

// CommandError describes a failed git invocation.
type CommandError struct {
	// Args are the arguments passed to git.
	Args []string
	// Dir is the directory git ran in, if any.
	Dir string
	// Stderr is the trimmed standard error output.
	Stderr string
	// Err is the underlying exec error.
	Err error
}

func (e *CommandError) Error() string {
	msg := "git " + joinArgs(e.Args)
	if e.Stderr != "" {
		return msg + ": " + e.Stderr
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg + ": failed"
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
