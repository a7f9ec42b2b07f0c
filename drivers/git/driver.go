package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strconv"
	"strings"

	"github.com/emenda-labs/prmerge/core/driver"
)

var _ driver.SourceControl = (*Driver)(nil)

const (
	// deepenStep is how many commits of base history each deepening fetch adds.
	deepenStep = 100
	// maxDeepenAttempts bounds the incremental fetches before the clone is
	// unshallowed outright.
	maxDeepenAttempts = 3
)

// Runner executes git with args in dir and returns combined output.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	return cmd.CombinedOutput()
}

// Driver implements driver.SourceControl on top of the git CLI.
type Driver struct {
	runner Runner
	token  string
	logger *slog.Logger
}

// NewDriver creates a Driver. When token is non-empty it is injected into
// HTTPS clone URLs so the clone and the final push authenticate.
func NewDriver(runner Runner, token string, logger *slog.Logger) *Driver {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{runner: runner, token: token, logger: logger}
}

// Clone makes a shallow single-branch clone of branch into dir.
func (d *Driver) Clone(ctx context.Context, repoURL, branch, dir string, depth int) error {
	authURL, err := d.injectToken(repoURL)
	if err != nil {
		return fmt.Errorf("failed to prepare repository URL: %w", err)
	}

	args := []string{"clone"}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth))
	}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, authURL, dir)

	d.logger.Debug("cloning repository", "url", repoURL, "branch", branch, "depth", depth, "dir", dir)
	if _, err := d.run(ctx, "", args...); err != nil {
		return fmt.Errorf("git clone %s: %w", repoURL, err)
	}
	return nil
}

// FetchPullRef fetches refs/pull/<number>/head from origin into localBranch.
func (d *Driver) FetchPullRef(ctx context.Context, dir string, number int, localBranch string) error {
	refspec := fmt.Sprintf("refs/pull/%d/head:refs/heads/%s", number, localBranch)

	d.logger.Debug("fetching pull request head", "number", number, "branch", localBranch)
	if _, err := d.run(ctx, dir, "fetch", "origin", refspec); err != nil {
		return fmt.Errorf("git fetch pull request #%d: %w", number, err)
	}
	return nil
}

// Checkout switches dir to ref.
func (d *Driver) Checkout(ctx context.Context, dir, ref string) error {
	if _, err := d.run(ctx, dir, "checkout", ref); err != nil {
		return fmt.Errorf("git checkout %s: %w", ref, err)
	}
	return nil
}

// MergeNoFF merges branch into HEAD with a merge commit. A shallow clone is
// deepened first when HEAD and branch share no history within it. Only a
// merge that stopped on conflicting changes is reported as a
// *driver.ConflictError; any other failure is a plain error.
func (d *Driver) MergeNoFF(ctx context.Context, dir, branch string) error {
	if err := d.ensureMergeBase(ctx, dir, branch); err != nil {
		return err
	}

	out, err := d.run(ctx, dir, "merge", "--no-ff", "--no-edit", branch)
	if err != nil {
		if isConflict(err, out) {
			return &driver.ConflictError{
				Report: strings.TrimSpace(string(out)),
				Err:    fmt.Errorf("git merge --no-ff %s: %w", branch, err),
			}
		}
		return fmt.Errorf("git merge --no-ff %s: %w", branch, err)
	}
	return nil
}

// ensureMergeBase fetches more base history until HEAD and branch have a
// common ancestor or the repository is no longer shallow. Histories that are
// unrelated even when complete are left for git merge to reject.
func (d *Driver) ensureMergeBase(ctx context.Context, dir, branch string) error {
	for attempt := 0; ; attempt++ {
		_, err := d.run(ctx, dir, "merge-base", "HEAD", branch)
		if err == nil {
			return nil
		}
		if exitCode(err) != 1 {
			return fmt.Errorf("git merge-base HEAD %s: %w", branch, err)
		}

		shallow, err := d.isShallow(ctx, dir)
		if err != nil {
			return err
		}
		if !shallow {
			return nil
		}

		args := []string{"fetch", "--deepen=" + strconv.Itoa(deepenStep), "origin"}
		if attempt >= maxDeepenAttempts {
			args = []string{"fetch", "--unshallow", "origin"}
		}
		d.logger.Debug("no merge base in shallow clone, fetching more history", "branch", branch, "args", strings.Join(args, " "))
		if _, err := d.run(ctx, dir, args...); err != nil {
			return fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
	}
}

func (d *Driver) isShallow(ctx context.Context, dir string) (bool, error) {
	out, err := d.run(ctx, dir, "rev-parse", "--is-shallow-repository")
	if err != nil {
		return false, fmt.Errorf("git rev-parse --is-shallow-repository: %w", err)
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

// isConflict reports whether a failed git merge stopped on conflicting
// changes. git exits 1 and prints CONFLICT lines in that case; fatal errors
// exit 128 and a killed process has no exit status.
func isConflict(err error, out []byte) bool {
	return exitCode(err) == 1 && strings.Contains(string(out), "CONFLICT")
}

// exitCode returns the exit status of a failed git process, or -1 when err
// did not come from a process that exited.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// AmendCommit stages paths and rewrites HEAD's message.
func (d *Driver) AmendCommit(ctx context.Context, dir string, paths []string, message string) error {
	if len(paths) > 0 {
		args := append([]string{"add", "--"}, paths...)
		if _, err := d.run(ctx, dir, args...); err != nil {
			return fmt.Errorf("git add: %w", err)
		}
	}
	if _, err := d.run(ctx, dir, "commit", "--amend", "--no-verify", "-m", message); err != nil {
		return fmt.Errorf("git commit --amend: %w", err)
	}
	return nil
}

// Push pushes ref to origin. A rejected push keeps git's output in the error.
func (d *Driver) Push(ctx context.Context, dir, ref string) error {
	if _, err := d.run(ctx, dir, "push", "origin", ref); err != nil {
		return fmt.Errorf("git push origin %s: %w", ref, err)
	}
	return nil
}

// RemoteURL returns the URL of remote in the current directory's repository.
// It satisfies driver.RemoteLookup.
func (d *Driver) RemoteURL(ctx context.Context, remote string) (string, error) {
	out, err := d.run(ctx, "", "config", "--get", "remote."+remote+".url")
	if err != nil {
		return "", fmt.Errorf("no %q remote configured: %w", remote, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// run executes git and folds the output into the returned error. The token is
// scrubbed from anything logged or returned.
func (d *Driver) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	out, err := d.runner.Run(ctx, dir, args...)
	if err != nil {
		output := d.redact(strings.TrimSpace(string(out)))
		d.logger.Debug("git command failed", "args", d.redact(strings.Join(args, " ")), "output", output)
		if output != "" {
			return out, fmt.Errorf("%w\n%s", err, output)
		}
		return out, err
	}
	return out, nil
}

// injectToken adds the token as userinfo on HTTPS URLs.
func (d *Driver) injectToken(repoURL string) (string, error) {
	if d.token == "" || !strings.HasPrefix(repoURL, "https://") {
		return repoURL, nil
	}

	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("invalid repository URL: %w", err)
	}
	u.User = url.UserPassword("x-access-token", d.token)
	return u.String(), nil
}

func (d *Driver) redact(s string) string {
	if d.token == "" {
		return s
	}
	return strings.ReplaceAll(s, d.token, "***")
}
