package git

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Repo is a git working copy rooted at a single directory.
//
// Repo holds no in-memory state besides its path, so every query reflects
// the working copy as it is on disk. It performs no locking of its own;
// callers that share a Repo across goroutines must serialize access.
type Repo struct {
	dir string
}

// New returns a Repo for dir. The directory does not need to exist yet.
func New(dir string) *Repo {
	return &Repo{dir: dir}
}

// Dir returns the working copy root.
func (r *Repo) Dir() string {
	return r.dir
}

// IsRepo reports whether the directory is a git working copy.
func (r *Repo) IsRepo() bool {
	gitDir := filepath.Join(r.dir, ".git")
	info, err := os.Stat(gitDir)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return true
	}

	// .git can be a file pointing elsewhere (worktrees, submodules)
	content, err := os.ReadFile(gitDir)
	if err != nil {
		return false
	}
	return bytes.HasPrefix(content, []byte("gitdir:"))
}

// git executes a git command inside the working copy.
func (r *Repo) git(args ...string) (string, error) {
	return newGitCommand(r.dir, args...).run()
}

// Clone clones url into the working copy directory. The directory must be
// absent or empty; its parent is created when missing.
func (r *Repo) Clone(url string) error {
	if url == "" {
		return ErrEmptyURL
	}

	entries, err := os.ReadDir(r.dir)
	switch {
	case err == nil && len(entries) > 0:
		return fmt.Errorf("clone %s into %s: %w", url, r.dir, ErrDestinationNotEmpty)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("clone %s into %s: %w", url, r.dir, err)
	}

	if err := os.MkdirAll(filepath.Dir(r.dir), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", r.dir, err)
	}

	args := []string{"clone", "-q", "-c", "core.autocrlf=false", url, r.dir}
	if _, err := newGitCommand("", args...).run(); err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}

	return nil
}

// Update fetches ref from origin and checks it out. ref may name a branch,
// a tag, or a commit. When ref is empty the current branch is brought up to
// date with its remote counterpart.
func (r *Repo) Update(ref string) error {
	if !r.IsRepo() {
		return fmt.Errorf("update %s: %w", r.dir, ErrNotRepository)
	}

	if ref == "" {
		branch, err := r.CurrentBranch()
		if err != nil {
			return fmt.Errorf("update %s: %w", r.dir, err)
		}
		ref = branch
	}

	if err := r.fetchRef(ref); err != nil {
		return fmt.Errorf("fetch %s: %w", ref, err)
	}

	args := []string{
		"-c", "advice.detachedHead=false",
		"-c", "advice.objectNameWarning=false",
		"checkout", "--force", ref,
	}
	if _, err := r.git(args...); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}

	return nil
}

// fetchRef fetches ref from origin, trying it as a branch, then as a tag,
// and finally falling back to a full fetch so that commits are available.
// Refspecs are fully qualified so a tag never lands under refs/heads.
func (r *Repo) fetchRef(ref string) error {
	attempts := [][]string{
		{"fetch", "--prune", "--update-head-ok", "origin", "refs/heads/" + ref + ":refs/heads/" + ref},
		{"fetch", "--prune", "--update-head-ok", "origin", "refs/tags/" + ref + ":refs/tags/" + ref},
		{"fetch", "--prune", "--tags", "origin"},
	}
	if looksLikeSha(ref) {
		attempts = attempts[2:]
	}

	var errs []error
	for _, args := range attempts {
		_, err := r.git(args...)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CurrentShaShort returns the abbreviated commit hash of HEAD.
func (r *Repo) CurrentShaShort() (string, error) {
	out, err := r.git("rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("current sha of %s: %w", r.dir, err)
	}
	return strings.TrimSpace(out), nil
}

// CurrentAbbrevRef returns the short name of HEAD: the branch name, or
// "HEAD" when detached.
func (r *Repo) CurrentAbbrevRef() (string, error) {
	out, err := r.git("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("current ref of %s: %w", r.dir, err)
	}
	return strings.TrimSpace(out), nil
}

// CurrentBranch returns the checked out branch name.
// Returns ErrDetachedHead when HEAD does not point at a branch.
func (r *Repo) CurrentBranch() (string, error) {
	out, err := r.git("symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.Stderr == "" {
			return "", ErrDetachedHead
		}
		return "", fmt.Errorf("current branch of %s: %w", r.dir, err)
	}
	return strings.TrimSpace(out), nil
}

// RemoteURL returns the URL of the origin remote. ok is false when the
// directory is not a working copy or has no origin.
func (r *Repo) RemoteURL() (url string, ok bool) {
	if !r.IsRepo() {
		return "", false
	}
	out, err := r.git("config", "--get", "remote.origin.url")
	if err != nil {
		return "", false
	}
	url = strings.TrimSpace(out)
	return url, url != ""
}

// looksLikeSha reports whether ref is an abbreviated or full hex object name.
func looksLikeSha(ref string) bool {
	if len(ref) < 7 || len(ref) > 64 {
		return false
	}
	for _, c := range ref {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
