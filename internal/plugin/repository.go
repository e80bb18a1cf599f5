package plugin

import (
	"sync"

	"github.com/dshills/toolvm/internal/git"
)

// Repository serializes operations on one plugin working copy.
//
// The lock is taken per call and never held across a whole lifecycle
// operation. Repositories created separately for the same directory do not
// exclude each other.
type Repository struct {
	mu   sync.Mutex
	repo *git.Repo
}

// NewRepository returns a handle for the working copy at dir.
func NewRepository(dir string) *Repository {
	return &Repository{repo: git.New(dir)}
}

// Dir returns the working copy root.
func (r *Repository) Dir() string {
	return r.repo.Dir()
}

// IsRepo reports whether the directory is a git working copy.
func (r *Repository) IsRepo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.IsRepo()
}

// RemoteURL returns the configured origin, if any. It never fails.
func (r *Repository) RemoteURL() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.RemoteURL()
}

// Clone clones url into the directory, which must be absent or empty.
func (r *Repository) Clone(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.Clone(url)
}

// Checkout fetches and checks out ref, or updates the current branch to
// its remote tip when ref is empty.
func (r *Repository) Checkout(ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.Update(ref)
}

// CurrentShaShort returns the abbreviated HEAD commit.
func (r *Repository) CurrentShaShort() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.CurrentShaShort()
}

// CurrentAbbrevRef returns the current branch name, or "HEAD" when detached.
func (r *Repository) CurrentAbbrevRef() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.CurrentAbbrevRef()
}
