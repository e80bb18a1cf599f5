package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/toolvm/internal/git"
	"github.com/dshills/toolvm/internal/progress"
)

const localPathHint = "If you are trying to link to a local directory, use `toolvm plugins link` instead.\n" +
	"Plugins could support local directories in the future but for now a symlink is required which `toolvm plugins link` will create for you."

// IsInstalled reports whether the install path exists. A dangling symlink
// counts as installed.
func (p *Plugin) IsInstalled() bool {
	_, err := os.Lstat(p.Path())
	return err == nil
}

// RequireInstalled returns an ErrNotInstalled error when the plugin is absent.
func (p *Plugin) RequireInstalled() error {
	if p.IsInstalled() {
		return nil
	}
	return &Error{
		Kind:   ErrNotInstalled,
		Plugin: p.name,
		Msg:    "not installed at",
		Target: p.Path(),
		Hint:   "run with --yes to install plugin automatically",
	}
}

// isLinked reports whether the install path is a symlink.
func (p *Plugin) isLinked() bool {
	info, err := os.Lstat(p.Path())
	return err == nil && info.Mode()&fs.ModeSymlink != 0
}

// Install clones the plugin's source, replacing any existing install, and
// checks out the ref carried in the source's "#ref" fragment.
//
// A failed install is not rolled back; the install path may be left
// partially populated.
func (p *Plugin) Install(pr progress.Report) error {
	src, err := p.ResolveSource()
	if err != nil {
		return err
	}

	repoURL, ref := git.SplitURLAndRef(src)
	if strings.HasPrefix(repoURL, "/") || strings.HasPrefix(repoURL, "~") {
		return &Error{
			Kind:   ErrValidation,
			Plugin: p.name,
			Msg:    "invalid repository URL",
			Target: repoURL,
			Hint:   localPathHint,
		}
	}

	if p.IsInstalled() {
		if err := p.remove(pr); err != nil {
			return err
		}
	}

	log := p.logger.With("url", repoURL, "path", p.Path())
	log.Debug("cloning plugin", "ref", ref)

	pr.SetMessage("cloning " + repoURL)
	if err := p.repo.Clone(repoURL); err != nil {
		return &Error{Kind: ErrRepository, Plugin: p.name, Msg: "failed to clone", Target: repoURL, Err: err}
	}

	if ref != "" {
		pr.SetMessage("checking out " + ref)
		if err := p.repo.Checkout(ref); err != nil {
			return &Error{Kind: ErrRepository, Plugin: p.name, Msg: "failed to check out " + ref + " in", Target: p.Path(), Err: err}
		}
	}

	sha, err := p.repo.CurrentShaShort()
	if err != nil {
		return &Error{Kind: ErrRepository, Plugin: p.name, Target: p.Path(), Err: err}
	}

	log.Info("installed plugin", "sha", sha)
	pr.FinishWithMessage(fmt.Sprintf("%s#%s", repoURL, sha))
	return nil
}

// Update checks out ref, or the current branch's remote tip when ref is
// empty. Linked plugins and non-git directories are left untouched and
// reported with a warning, not an error.
func (p *Plugin) Update(pr progress.Report, ref string) error {
	log := p.logger.With("path", p.repo.Dir())
	if p.isLinked() {
		log.Warn("plugin is a symlink, not updating")
		return nil
	}
	if !p.repo.IsRepo() {
		log.Warn("plugin is not a git repository, not updating")
		return nil
	}

	pr.SetMessage("updating git repo")
	if err := p.repo.Checkout(ref); err != nil {
		return &Error{Kind: ErrRepository, Plugin: p.name, Msg: "failed to update", Target: p.Path(), Err: err}
	}

	sha, err := p.repo.CurrentShaShort()
	if err != nil {
		return &Error{Kind: ErrRepository, Plugin: p.name, Target: p.Path(), Err: err}
	}
	remote, _ := p.repo.RemoteURL()

	log.Info("updated plugin", "ref", ref, "sha", sha)
	pr.FinishWithMessage(fmt.Sprintf("%s#%s", remote, sha))
	return nil
}

// Uninstall removes the install path. Uninstalling an absent plugin
// succeeds without reporting progress.
func (p *Plugin) Uninstall(pr progress.Report) error {
	if !p.IsInstalled() {
		return nil
	}
	if err := p.remove(pr); err != nil {
		return err
	}
	pr.FinishWithMessage("uninstalled")
	return nil
}

// remove deletes the install path without a terminal progress message.
func (p *Plugin) remove(pr progress.Report) error {
	path := p.Path()
	pr.SetMessage("uninstalling")
	pr.SetMessage("removing " + path)

	if err := os.RemoveAll(path); err != nil {
		return &Error{Kind: ErrFilesystem, Plugin: p.name, Msg: "failed to remove directory", Target: path, Err: err}
	}
	p.logger.Info("removed plugin", "path", path)
	return nil
}

// EnsureInstalled installs the plugin when it is absent, or always when
// force is set.
func (p *Plugin) EnsureInstalled(pr progress.Report, force bool) error {
	if p.IsInstalled() && !force {
		return nil
	}
	return p.Install(pr)
}

// Link installs the plugin as a symlink to a local plugin directory. An
// existing install is replaced only when force is set.
func (p *Plugin) Link(target string, force bool) error {
	abs, err := filepath.Abs(expandHome(target))
	if err != nil {
		return &Error{Kind: ErrValidation, Plugin: p.name, Msg: "invalid link target", Target: target, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return &Error{Kind: ErrValidation, Plugin: p.name, Msg: "invalid link target", Target: abs, Err: err}
	}

	if p.IsInstalled() {
		if !force {
			return &Error{
				Kind:   ErrValidation,
				Plugin: p.name,
				Msg:    "already installed at",
				Target: p.Path(),
				Hint:   "use --force to overwrite",
			}
		}
		if err := os.RemoveAll(p.Path()); err != nil {
			return &Error{Kind: ErrFilesystem, Plugin: p.name, Msg: "failed to remove directory", Target: p.Path(), Err: err}
		}
	}

	if err := os.MkdirAll(p.dirs.Plugins, 0o755); err != nil {
		return &Error{Kind: ErrFilesystem, Plugin: p.name, Msg: "failed to create", Target: p.dirs.Plugins, Err: err}
	}
	if err := os.Symlink(abs, p.Path()); err != nil {
		return &Error{Kind: ErrFilesystem, Plugin: p.name, Msg: "failed to link", Target: p.Path(), Err: err}
	}

	p.logger.Info("linked plugin", "path", p.Path(), "target", abs)
	return nil
}

// RemoteURL returns the working copy's origin, falling back to the remote
// given with WithRemote. ok is false when neither is known.
func (p *Plugin) RemoteURL() (string, bool) {
	if remote, ok := p.repo.RemoteURL(); ok {
		return remote, true
	}
	return p.remote, p.remote != ""
}

// CurrentAbbrevRef returns the checked out branch, "HEAD" when detached, or
// "" when the plugin is not installed.
func (p *Plugin) CurrentAbbrevRef() (string, error) {
	if !p.IsInstalled() {
		return "", nil
	}
	ref, err := p.repo.CurrentAbbrevRef()
	if err != nil {
		return "", &Error{Kind: ErrRepository, Plugin: p.name, Target: p.Path(), Err: err}
	}
	return ref, nil
}

// CurrentShaShort returns the abbreviated HEAD commit, or "" when the plugin
// is not installed.
func (p *Plugin) CurrentShaShort() (string, error) {
	if !p.IsInstalled() {
		return "", nil
	}
	sha, err := p.repo.CurrentShaShort()
	if err != nil {
		return "", &Error{Kind: ErrRepository, Plugin: p.name, Target: p.Path(), Err: err}
	}
	return sha, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
