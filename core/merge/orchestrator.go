// Package merge runs the merge protocol for one pull request: resolve it,
// check it can be merged, merge it in a scratch clone, bump the version
// record according to the request's classification label, amend the merge
// commit and push.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/emenda-labs/prmerge/core/driver"
	"github.com/emenda-labs/prmerge/core/request"
	"github.com/emenda-labs/prmerge/core/version"
	"github.com/emenda-labs/prmerge/pkg/sbtversion"
	"github.com/emenda-labs/prmerge/pkg/workdir"
)

// DefaultCloneDepth bounds the history first fetched for the base branch.
// Older merge bases are reached by deepening the clone during the merge.
const DefaultCloneDepth = 50

// Resolver produces the request context a run operates on.
type Resolver interface {
	Resolve(ctx context.Context, repo string, number int) (*request.Context, error)
}

// Config tunes a run.
type Config struct {
	// CloneDepth is passed to the shallow clone. Zero selects DefaultCloneDepth.
	CloneDepth int
	// VersionFile is the version record's path relative to the repository root.
	VersionFile string
	// WorkDirBase is where the scratch directory is created. Empty means the
	// system temp dir.
	WorkDirBase string
	// DryRun stops after the amended commit and never pushes.
	DryRun bool
}

// Outcome describes a completed run.
type Outcome struct {
	Repo      request.Repo
	Number    int
	Branch    string
	Label     version.Label
	Previous  version.Version
	Next      version.Version
	Message   string
	Published bool
}

// Orchestrator sequences a single merge run.
type Orchestrator struct {
	resolver Resolver
	scm      driver.SourceControl
	cfg      Config
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(resolver Resolver, scm driver.SourceControl, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.CloneDepth <= 0 {
		cfg.CloneDepth = DefaultCloneDepth
	}
	if cfg.VersionFile == "" {
		cfg.VersionFile = sbtversion.DefaultFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{resolver: resolver, scm: scm, cfg: cfg, logger: logger}
}

// Run merges pull request number of repo (inferred when empty). Every error
// is an *AbortError naming the last state reached. The scratch directory is
// removed on every path; the remote is only touched by the final push.
func (o *Orchestrator) Run(ctx context.Context, repo string, number int) (out *Outcome, err error) {
	state := Start
	advance := func(s State) {
		state = s
		o.logger.Debug("merge state", "state", s.String())
	}
	abort := func(cause error) error {
		o.logger.Debug("merge aborted", "state", state.String(), "error", cause)
		return &AbortError{State: state, Err: cause}
	}

	rc, err := o.resolver.Resolve(ctx, repo, number)
	if err != nil {
		return nil, abort(err)
	}
	advance(Resolved)

	if rc.Merged {
		return nil, abort(fmt.Errorf("%s#%d: %w", rc.Repo, rc.Number, ErrAlreadyMerged))
	}
	advance(EligibilityChecked)

	dir, err := workdir.New(o.cfg.WorkDirBase, rc.Repo.Owner+"-"+rc.Repo.Name+"-"+strconv.Itoa(rc.Number))
	if err != nil {
		return nil, abort(&FilesystemError{Op: "create working directory", Err: err})
	}
	defer func() {
		if cerr := dir.Close(); cerr != nil && err == nil {
			out = nil
			err = abort(&FilesystemError{Op: "remove working directory", Path: dir.Path(), Err: cerr})
		}
	}()

	repoDir := filepath.Join(dir.Path(), "repo")
	localBranch := rc.LocalBranch()

	if err := o.scm.Clone(ctx, rc.BaseCloneURL, rc.BaseRef, repoDir, o.cfg.CloneDepth); err != nil {
		return nil, abort(fmt.Errorf("cloning %s: %w", rc.Repo, err))
	}
	if err := o.scm.FetchPullRef(ctx, repoDir, rc.Number, localBranch); err != nil {
		return nil, abort(fmt.Errorf("fetching %s#%d: %w", rc.Repo, rc.Number, err))
	}
	advance(Cloned)

	if err := o.scm.Checkout(ctx, repoDir, rc.BaseRef); err != nil {
		return nil, abort(fmt.Errorf("checking out %s: %w", rc.BaseRef, err))
	}
	if err := o.scm.MergeNoFF(ctx, repoDir, localBranch); err != nil {
		return nil, abort(conflictOrError(err, localBranch, rc.BaseRef))
	}
	advance(Merged)

	current, err := sbtversion.Read(repoDir, o.cfg.VersionFile)
	if err != nil {
		return nil, abort(&FilesystemError{Op: "read version record", Err: err})
	}
	next, label, err := version.Apply(current, rc.Labels)
	if err != nil {
		return nil, abort(err)
	}
	o.logger.Debug("computed version",
		"current", current.String(),
		"next", next.String(),
		"selected", string(label),
		"classification", rc.Labels.Labels(),
		"labels", rc.RawLabels,
	)
	advance(VersionComputed)

	if err := sbtversion.Write(repoDir, o.cfg.VersionFile, next); err != nil {
		return nil, abort(&FilesystemError{Op: "write version record", Err: err})
	}
	message := CommitMessage(next, rc)
	if err := o.scm.AmendCommit(ctx, repoDir, []string{o.cfg.VersionFile}, message); err != nil {
		return nil, abort(fmt.Errorf("amending merge commit: %w", err))
	}
	advance(Committed)

	outcome := &Outcome{
		Repo:     rc.Repo,
		Number:   rc.Number,
		Branch:   rc.BaseRef,
		Label:    label,
		Previous: current,
		Next:     next,
		Message:  message,
	}

	if o.cfg.DryRun {
		o.logger.Info("dry run: skipping push", "branch", rc.BaseRef, "version", next.String())
		advance(Done)
		return outcome, nil
	}

	if err := o.scm.Push(ctx, repoDir, rc.BaseRef); err != nil {
		return nil, abort(&PublishError{Ref: rc.BaseRef, Err: err})
	}
	outcome.Published = true
	advance(Published)

	advance(Done)
	return outcome, nil
}

// CommitMessage builds the amended merge commit message: the new version and
// title, a line naming the merged branch, then the request body verbatim.
func CommitMessage(next version.Version, rc *request.Context) string {
	return fmt.Sprintf("%s: %s\n%s\n%s", next, rc.Title, MergeAnnotation(rc), rc.Body)
}

// MergeAnnotation is the fixed second line of the commit message.
func MergeAnnotation(rc *request.Context) string {
	return fmt.Sprintf("Merge branch '%s' into %s", rc.LocalBranch(), rc.BaseRef)
}

func conflictOrError(err error, branch, base string) error {
	var ce *driver.ConflictError
	if errors.As(err, &ce) {
		return &MergeConflictError{Branch: branch, Base: base, Detail: ce.Report, Err: err}
	}
	return fmt.Errorf("merging %s into %s: %w", branch, base, err)
}
