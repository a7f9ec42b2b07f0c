package driver

import (
	"context"

	"github.com/emenda-labs/prmerge/core/request"
)

// MetadataClient reads merge request state from the hosting service.
type MetadataClient interface {
	// FetchPullRequest returns the metadata for a single pull request.
	FetchPullRequest(ctx context.Context, repo request.Repo, number int) (request.PullRequest, error)

	// FetchLabels returns the names of every label attached to the request.
	FetchLabels(ctx context.Context, repo request.Repo, number int) ([]string, error)
}

// SourceControl performs the version-control operations of a merge run.
// Every method operates on the working copy rooted at dir. Implementations
// return the tool's own output in errors so callers can surface it.
type SourceControl interface {
	// Clone makes a depth-bounded clone of url's branch into dir.
	Clone(ctx context.Context, url, branch, dir string, depth int) error

	// FetchPullRef fetches the head of pull request number from origin into
	// localBranch.
	FetchPullRef(ctx context.Context, dir string, number int, localBranch string) error

	// Checkout switches the working copy to ref.
	Checkout(ctx context.Context, dir, ref string) error

	// MergeNoFF merges branch into the current branch, always creating a
	// merge commit. A depth-bounded clone is extended as needed to reach the
	// merge base. Only conflicting changes yield a *ConflictError.
	MergeNoFF(ctx context.Context, dir, branch string) error

	// AmendCommit stages paths and amends HEAD with message.
	AmendCommit(ctx context.Context, dir string, paths []string, message string) error

	// Push pushes ref to origin.
	Push(ctx context.Context, dir, ref string) error
}

// RemoteLookup returns the URL configured for the named remote of the local
// repository. It is injected so remote inference does not depend on ambient
// process state.
type RemoteLookup func(ctx context.Context, remote string) (string, error)

// ConflictError reports a merge that could not complete cleanly.
type ConflictError struct {
	// Report is the merge tool's output describing the conflict.
	Report string
	Err    error
}

func (e *ConflictError) Error() string {
	return "merge conflict: " + e.Err.Error()
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
