package request

import (
	"fmt"
	"strings"

	"github.com/emenda-labs/prmerge/core/version"
)

// Repo identifies a hosted repository as owner/name.
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo parses an "owner/name" identifier.
func ParseRepo(s string) (Repo, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("invalid repository %q: want owner/name", s)
	}
	return Repo{Owner: parts[0], Name: parts[1]}, nil
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// PullRequest is the metadata returned by the hosting API for one request.
// Body has already had CRLF sequences normalized to LF.
type PullRequest struct {
	Merged       bool
	Title        string
	Body         string
	BaseCloneURL string
	HeadCloneURL string
	BaseRef      string
	HeadRef      string
	BaseSHA      string
	Submitter    string
}

// Context is a read-only snapshot of a merge request taken once at the start
// of a run.
type Context struct {
	Repo   Repo
	Number int
	PullRequest
	Labels version.LabelSet
	// RawLabels keeps every label name as fetched, including unrecognized ones.
	RawLabels []string
}

// LocalBranch is the branch name the head ref is fetched into.
func (c *Context) LocalBranch() string {
	return c.Submitter + "/" + c.HeadRef
}

// NormalizeBody restores LF line endings in text that crossed the wire with
// CRLF sequences.
func NormalizeBody(body string) string {
	return strings.ReplaceAll(body, "\r\n", "\n")
}
