package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emenda-labs/prmerge/core/driver"
)

// isolateGit points git at an empty home and a fixed identity so the host's
// configuration cannot leak into the test repositories.
func isolateGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Test Author")
	t.Setenv("GIT_AUTHOR_EMAIL", "author@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test Committer")
	t.Setenv("GIT_COMMITTER_EMAIL", "committer@example.com")
}

func gitIn(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

func commitFile(t *testing.T, dir, name, content, message string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	gitIn(t, dir, "add", name)
	gitIn(t, dir, "commit", "-q", "-m", message)
}

type originLayout struct {
	// mainAfterFork is how many commits land on main after the pull request
	// branched off.
	mainAfterFork int
	// conflicting makes main and the pull request edit the same line.
	conflicting bool
}

// newOrigin builds a bare repository with a main branch and a pull request
// head published under refs/pull/1/head, and returns its file:// URL.
func newOrigin(t *testing.T, layout originLayout) string {
	t.Helper()
	work := t.TempDir()
	gitIn(t, work, "init", "-q")
	gitIn(t, work, "symbolic-ref", "HEAD", "refs/heads/main")
	commitFile(t, work, "README.md", "widgets\n", "initial")
	commitFile(t, work, "version.sbt", "version in ThisBuild := \"0.3.5\"\n", "add version record")

	gitIn(t, work, "checkout", "-q", "-b", "feat")
	if layout.conflicting {
		commitFile(t, work, "README.md", "widgets from the fork\n", "reword readme")
	} else {
		commitFile(t, work, "feature.txt", "gizmo\n", "add feature")
	}

	gitIn(t, work, "checkout", "-q", "main")
	for i := 0; i < layout.mainAfterFork; i++ {
		gitIn(t, work, "commit", "-q", "--allow-empty", "-m", fmt.Sprintf("main %d", i))
	}
	if layout.conflicting {
		commitFile(t, work, "README.md", "widgets on main\n", "reword readme on main")
	}

	origin := filepath.Join(t.TempDir(), "origin.git")
	gitIn(t, "", "init", "-q", "--bare", origin)
	gitIn(t, work, "push", "-q", origin, "main", "feat:refs/pull/1/head")
	return "file://" + origin
}

func cloneAndMerge(t *testing.T, originURL string, depth int) (string, error) {
	t.Helper()
	ctx := context.Background()
	d := NewDriver(ExecRunner{}, "", nil)
	dir := filepath.Join(t.TempDir(), "repo")

	require.NoError(t, d.Clone(ctx, originURL, "main", dir, depth))
	require.NoError(t, d.FetchPullRef(ctx, dir, 1, "octocat/feat"))
	require.NoError(t, d.Checkout(ctx, dir, "main"))
	return dir, d.MergeNoFF(ctx, dir, "octocat/feat")
}

func TestMergeNoFF_Repository(t *testing.T) {
	isolateGit(t)

	tests := []struct {
		name          string
		mainAfterFork int
	}{
		{name: "fork inside clone depth", mainAfterFork: 5},
		{name: "fork beyond clone depth", mainAfterFork: 60},
		{name: "fork beyond first deepening", mainAfterFork: 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin := newOrigin(t, originLayout{mainAfterFork: tt.mainAfterFork})

			dir, err := cloneAndMerge(t, origin, 50)
			require.NoError(t, err)

			parents := strings.Fields(gitIn(t, dir, "rev-list", "--parents", "-n", "1", "HEAD"))
			assert.Len(t, parents, 3, "HEAD is a merge commit")
			assert.FileExists(t, filepath.Join(dir, "feature.txt"))
		})
	}
}

func TestMergeNoFF_RepositoryConflict(t *testing.T) {
	isolateGit(t)
	origin := newOrigin(t, originLayout{mainAfterFork: 2, conflicting: true})

	_, err := cloneAndMerge(t, origin, 50)
	var ce *driver.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Report, "CONFLICT")
	assert.Contains(t, ce.Report, "README.md")
}

func TestMergeNoFF_RepositoryAmendAndPush(t *testing.T) {
	isolateGit(t)
	origin := newOrigin(t, originLayout{mainAfterFork: 70})
	ctx := context.Background()

	dir, err := cloneAndMerge(t, origin, 50)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "version.sbt"), []byte("version in ThisBuild := \"0.3.6\"\n"), 0o644))
	d := NewDriver(ExecRunner{}, "", nil)
	require.NoError(t, d.AmendCommit(ctx, dir, []string{"version.sbt"}, "0.3.6: Add feature\nMerge branch 'octocat/feat' into main\n"))
	require.NoError(t, d.Push(ctx, dir, "main"))

	bare := strings.TrimPrefix(origin, "file://")
	assert.Equal(t, "0.3.6: Add feature", gitIn(t, bare, "log", "-1", "--format=%s", "main"))
	assert.Equal(t, "version in ThisBuild := \"0.3.6\"", gitIn(t, bare, "show", "main:version.sbt"))
}
