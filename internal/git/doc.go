// Package git provides the version-control primitives used to manage plugin
// working copies.
//
// The package shells out to the git binary. It covers the small surface the
// plugin lifecycle needs: cloning a remote, fetching and checking out a ref,
// and querying the current revision, branch, and origin URL.
//
//	repo := git.New("/home/me/.local/share/toolvm/plugins/bun")
//	if err := repo.Clone("https://github.com/version-fox/vfox-bun"); err != nil {
//	    return err
//	}
//	if err := repo.Update("v1.0.0"); err != nil {
//	    return err
//	}
//	sha, _ := repo.CurrentShaShort()
//
// URLs may carry a "#ref" suffix naming the ref to check out after cloning;
// SplitURLAndRef separates the two.
//
// # Thread Safety
//
// Repo carries no mutable state, but git itself does not tolerate concurrent
// mutation of a single working copy. Callers must serialize operations on
// the same directory.
package git
