// Package github reads pull request metadata from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emenda-labs/prmerge/core/driver"
	"github.com/emenda-labs/prmerge/core/request"
)

const (
	// DefaultAPIEndpoint is the GitHub REST API base URL.
	DefaultAPIEndpoint = "https://api.github.com"

	httpClientTimeout = 30 * time.Second
	defaultUserAgent  = "prmerge"
	maxResponseSize   = 10 * 1024 * 1024
	labelsPerPage     = 100
)

// ErrNotFound is returned when the repository or pull request does not exist
// or is not visible with the configured credentials.
var ErrNotFound = errors.New("not found")

var _ driver.MetadataClient = (*Client)(nil)

// Client is a minimal GitHub REST client. Requests are never retried.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
}

// NewClient creates a Client for baseURL. An empty baseURL selects
// DefaultAPIEndpoint; an empty token sends unauthenticated requests.
func NewClient(baseURL, token string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultAPIEndpoint
	}
	return &Client{
		httpClient: &http.Client{Timeout: httpClientTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		userAgent:  defaultUserAgent,
	}
}

type pullResponse struct {
	Merged bool   `json:"merged"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
	Base branchRef `json:"base"`
	Head branchRef `json:"head"`
}

type branchRef struct {
	Ref  string `json:"ref"`
	SHA  string `json:"sha"`
	Repo *struct {
		CloneURL string `json:"clone_url"`
	} `json:"repo"`
}

func (b branchRef) cloneURL() string {
	if b.Repo == nil {
		return ""
	}
	return b.Repo.CloneURL
}

type labelResponse struct {
	Name string `json:"name"`
}

// FetchPullRequest returns the metadata of pull request number in repo.
func (c *Client) FetchPullRequest(ctx context.Context, repo request.Repo, number int) (request.PullRequest, error) {
	path := fmt.Sprintf("/repos/%s/pulls/%d", repo, number)

	var pr pullResponse
	if err := c.getJSON(ctx, path, &pr); err != nil {
		return request.PullRequest{}, fmt.Errorf("fetching pull request %s#%d: %w", repo, number, err)
	}

	// A deleted fork leaves head.repo null; the pull ref is still fetchable
	// from the base repository.
	return request.PullRequest{
		Merged:       pr.Merged,
		Title:        pr.Title,
		Body:         request.NormalizeBody(pr.Body),
		BaseCloneURL: pr.Base.cloneURL(),
		HeadCloneURL: pr.Head.cloneURL(),
		BaseRef:      pr.Base.Ref,
		HeadRef:      pr.Head.Ref,
		BaseSHA:      pr.Base.SHA,
		Submitter:    pr.User.Login,
	}, nil
}

// FetchLabels returns the label names attached to pull request number.
func (c *Client) FetchLabels(ctx context.Context, repo request.Repo, number int) ([]string, error) {
	path := fmt.Sprintf("/repos/%s/issues/%d/labels?per_page=%s", repo, number, strconv.Itoa(labelsPerPage))

	var labels []labelResponse
	if err := c.getJSON(ctx, path, &labels); err != nil {
		return nil, fmt.Errorf("fetching labels for %s#%d: %w", repo, number, err)
	}

	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names, nil
}

// getJSON performs a single GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response body from %s: %w", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("unauthorized (status 401) from %s: check the configured token", url)
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return fmt.Errorf("rate limited by %s", url)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, url, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response from %s: %w", url, err)
	}
	return nil
}
