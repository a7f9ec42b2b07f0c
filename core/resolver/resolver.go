// Package resolver turns command-line input into a request.Context by
// inferring the repository and fetching the pull request's metadata and
// labels.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emenda-labs/prmerge/core/driver"
	"github.com/emenda-labs/prmerge/core/request"
	"github.com/emenda-labs/prmerge/core/version"
)

const (
	DefaultHost   = "github.com"
	DefaultRemote = "upstream"
)

// ErrNoRepository is returned when no repository was given and none could be
// inferred from the configured remote.
var ErrNoRepository = errors.New("cannot determine repository")

// ResolutionError wraps any failure to build a request.Context.
type ResolutionError struct {
	Op  string
	Err error
}

func (e *ResolutionError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolver builds request contexts.
type Resolver struct {
	client driver.MetadataClient
	lookup driver.RemoteLookup
	remote string
	host   string
	logger *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithRemote sets the remote consulted when the repository is inferred.
func WithRemote(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.remote = name
		}
	}
}

// WithHost sets the hosting domain recognized in remote URLs.
func WithHost(host string) Option {
	return func(r *Resolver) {
		if host != "" {
			r.host = host
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Resolver. lookup may be nil, in which case the repository
// must always be given explicitly.
func New(client driver.MetadataClient, lookup driver.RemoteLookup, opts ...Option) *Resolver {
	r := &Resolver{
		client: client,
		lookup: lookup,
		remote: DefaultRemote,
		host:   DefaultHost,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the context for pull request number. An empty repo is
// inferred from the configured remote.
func (r *Resolver) Resolve(ctx context.Context, repo string, number int) (*request.Context, error) {
	if number <= 0 {
		return nil, &ResolutionError{Op: "resolve", Err: fmt.Errorf("invalid pull request number %d", number)}
	}

	id, err := r.repository(ctx, repo)
	if err != nil {
		return nil, &ResolutionError{Op: "resolve repository", Err: err}
	}

	pr, err := r.client.FetchPullRequest(ctx, id, number)
	if err != nil {
		return nil, &ResolutionError{Op: "fetch metadata", Err: err}
	}

	names, err := r.client.FetchLabels(ctx, id, number)
	if err != nil {
		return nil, &ResolutionError{Op: "fetch labels", Err: err}
	}

	rc := &request.Context{
		Repo:        id,
		Number:      number,
		PullRequest: pr,
		Labels:      version.NewLabelSet(names...),
		RawLabels:   names,
	}

	r.logger.Debug("resolved pull request",
		"repo", id.String(),
		"number", number,
		"merged", pr.Merged,
		"base", pr.BaseRef,
		"head", pr.HeadRef,
		"base_sha", pr.BaseSHA,
		"submitter", pr.Submitter,
		"labels", names,
	)

	return rc, nil
}

func (r *Resolver) repository(ctx context.Context, repo string) (request.Repo, error) {
	if repo != "" {
		return request.ParseRepo(repo)
	}

	if r.lookup == nil {
		return request.Repo{}, ErrNoRepository
	}

	remoteURL, err := r.lookup(ctx, r.remote)
	if err != nil {
		return request.Repo{}, fmt.Errorf("%w: %v", ErrNoRepository, err)
	}
	if remoteURL == "" {
		return request.Repo{}, fmt.Errorf("%w: remote %q has no URL", ErrNoRepository, r.remote)
	}

	id, err := ParseRemoteURL(r.host, remoteURL)
	if err != nil {
		return request.Repo{}, fmt.Errorf("%w: %v", ErrNoRepository, err)
	}
	r.logger.Debug("inferred repository from remote", "remote", r.remote, "url", remoteURL, "repo", id.String())
	return id, nil
}

// ParseRemoteURL extracts owner/name from a remote URL on host. Recognized
// forms are git@host:owner/name(.git) and https://host/owner/name(.git).
func ParseRemoteURL(host, remoteURL string) (request.Repo, error) {
	var path string
	switch {
	case strings.HasPrefix(remoteURL, "git@"+host+":"):
		path = strings.TrimPrefix(remoteURL, "git@"+host+":")
	case strings.HasPrefix(remoteURL, "https://"+host+"/"):
		path = strings.TrimPrefix(remoteURL, "https://"+host+"/")
	default:
		return request.Repo{}, fmt.Errorf("unsupported remote URL %q for host %s", remoteURL, host)
	}

	path = strings.TrimSuffix(path, ".git")
	repo, err := request.ParseRepo(path)
	if err != nil {
		return request.Repo{}, fmt.Errorf("invalid remote URL %q: %w", remoteURL, err)
	}
	return repo, nil
}
