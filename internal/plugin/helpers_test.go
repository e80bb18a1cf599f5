package plugin

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/toolvm/internal/config"
	"github.com/dshills/toolvm/internal/git"
	"github.com/dshills/toolvm/internal/registry"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func requireGit(t *testing.T) {
	t.Helper()
	if !git.Available() {
		t.Skip("git binary not available")
	}
}

func testDirs(t *testing.T) config.Dirs {
	t.Helper()
	root := t.TempDir()
	return config.Dirs{
		Plugins:   filepath.Join(root, "plugins"),
		Cache:     filepath.Join(root, "cache"),
		Downloads: filepath.Join(root, "downloads"),
		Installs:  filepath.Join(root, "installs"),
		Temp:      filepath.Join(root, "tmp"),
	}
}

func newTestPlugin(t *testing.T, name string, dirs config.Dirs, opts ...Option) *Plugin {
	t.Helper()
	opts = append([]Option{WithDirs(dirs), WithLogger(discardLogger)}, opts...)
	p, err := New(name, opts...)
	require.NoError(t, err)
	return p
}

// gitCmd runs a git command in dir.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// upstreamPlugin creates a vfox plugin repository with two commits on main,
// the first tagged v1. It returns the repository directory and a file:// URL.
func upstreamPlugin(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q", "-b", "main")
	writeFile(t, dir, "metadata.lua", `PLUGIN = { name = "demo", version = "1.0.0" }`)
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-q", "-m", "initial")
	gitCmd(t, dir, "tag", "v1")
	writeFile(t, dir, "hooks/mise_path.lua", `function PLUGIN:MisePath(ctx) return { "/opt/demo/bin" } end`)
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-q", "-m", "add path hook")
	return dir, "file://" + filepath.ToSlash(dir)
}

// aliasRegistry maps alias to a vfox target.
func aliasRegistry(t *testing.T, pairs ...string) *registry.Registry {
	t.Helper()
	m := make(map[string]string)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = "vfox:" + pairs[i+1]
	}
	r, err := registry.FromMap(m)
	require.NoError(t, err)
	return r
}
