package git

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
)

// binary is the git executable invoked for every command.
var binary = "git"

// gitCommand is a single git invocation, optionally bound to a directory.
type gitCommand struct {
	dir  string
	args []string
}

// newGitCommand creates a new git command.
func newGitCommand(dir string, args ...string) *gitCommand {
	return &gitCommand{dir: dir, args: args}
}

// run executes the git command and returns its standard output.
func (c *gitCommand) run() (string, error) {
	cmd := exec.Command(binary, c.args...)
	if c.dir != "" {
		cmd.Dir = c.dir
	}
	// Never block on an interactive credential prompt.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &CommandError{
			Args:   c.args,
			Dir:    c.dir,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return stdout.String(), nil
}

// Available reports whether the git binary can be found on PATH.
func Available() bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
