package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"regexp"
	"strings"

	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/dshills/prreview/internal/logging"
)

// PullRequestsService is the subset of the go-github pull-request API used here.
type PullRequestsService interface {
	List(ctx context.Context, owner, repo string, opts *github.PullRequestListOptions) ([]*github.PullRequest, *github.Response, error)
	GetRaw(ctx context.Context, owner, repo string, number int, opts github.RawOptions) (string, *github.Response, error)
	ListFiles(ctx context.Context, owner, repo string, number int, opts *github.ListOptions) ([]*github.CommitFile, *github.Response, error)
	CreateReview(ctx context.Context, owner, repo string, number int, review *github.PullRequestReviewRequest) (*github.PullRequestReview, *github.Response, error)
}

// Platform is what the CLI and review flow need from a code host.
type Platform interface {
	ListPullRequests(ctx context.Context, owner, repo, state string, limit int) ([]PullRequest, error)
	GetDiff(ctx context.Context, owner, repo string, number int) (string, error)
	ListFiles(ctx context.Context, owner, repo string, number int) ([]File, error)
	PostReview(ctx context.Context, owner, repo string, number int, review Review) error
}

// PullRequest is the summary printed by the listing flow.
type PullRequest struct {
	Number int
	Title  string
	Author string
	State  string
}

// File is a file changed by a pull request.
type File struct {
	Filename  string
	Status    string
	Additions int
	Deletions int
}

// Client talks to the GitHub REST API.
type Client struct {
	prs PullRequestsService
}

var _ Platform = (*Client)(nil)

// NewClient creates a client authenticated with token. A non-empty apiURL
// targets a GitHub Enterprise server.
func NewClient(token, apiURL string) (*Client, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	if apiURL = strings.TrimRight(apiURL, "/"); apiURL != "" && apiURL != "https://api.github.com" {
		var err error
		client, err = client.WithEnterpriseURLs(apiURL+"/", apiURL+"/")
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub API URL %s: %w", apiURL, err)
		}
	}
	return &Client{prs: client.PullRequests}, nil
}

// NewClientWithService builds a client over an existing service, typically a mock.
func NewClientWithService(prs PullRequestsService) *Client {
	return &Client{prs: prs}
}

// ListPullRequests pages through pull requests in state until limit items
// are collected or the last page is reached. Order is preserved.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state string, limit int) ([]PullRequest, error) {
	if limit <= 0 {
		return nil, nil
	}
	if state == "" {
		state = "open"
	}

	opts := &github.PullRequestListOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: min(limit, 100)},
	}

	var out []PullRequest
	for {
		page, resp, err := c.prs.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, wrapError(err, fmt.Sprintf("listing pull requests in %s/%s", owner, repo))
		}
		for _, pr := range page {
			out = append(out, PullRequest{
				Number: pr.GetNumber(),
				Title:  pr.GetTitle(),
				Author: pr.GetUser().GetLogin(),
				State:  pr.GetState(),
			})
			if len(out) == limit {
				return out, nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// GetDiff fetches the unified diff of a pull request.
func (c *Client) GetDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	diff, _, err := c.prs.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return "", fmt.Errorf("PR #%d not found in %s/%s", number, owner, repo)
		}
		return "", wrapError(err, fmt.Sprintf("fetching diff for PR #%d", number))
	}
	return diff, nil
}

// ListFiles fetches every file changed by a pull request.
func (c *Client) ListFiles(ctx context.Context, owner, repo string, number int) ([]File, error) {
	opts := &github.ListOptions{PerPage: 100}
	var out []File
	for {
		page, resp, err := c.prs.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, wrapError(err, fmt.Sprintf("listing files for PR #%d", number))
		}
		for _, f := range page {
			out = append(out, File{
				Filename:  f.GetFilename(),
				Status:    f.GetStatus(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
			})
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// PostReview posts a pull request review with inline comments.
func (c *Client) PostReview(ctx context.Context, owner, repo string, number int, review Review) error {
	req := &github.PullRequestReviewRequest{
		Body:  github.Ptr(review.Body),
		Event: github.Ptr(review.Event),
	}
	for _, rc := range review.Comments {
		req.Comments = append(req.Comments, &github.DraftReviewComment{
			Path: github.Ptr(rc.Path),
			Line: github.Ptr(rc.Line),
			Side: github.Ptr("RIGHT"),
			Body: github.Ptr(rc.Body),
		})
	}

	if _, _, err := c.prs.CreateReview(ctx, owner, repo, number, req); err != nil {
		if statusOf(err) == http.StatusUnprocessableEntity {
			return fmt.Errorf("GitHub rejected review (422): %w", err)
		}
		return wrapError(err, fmt.Sprintf("posting review to PR #%d", number))
	}
	return nil
}

// AuthError reports rejected GitHub credentials.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return "GitHub authentication failed: " + e.Err.Error() }

func (e *AuthError) Unwrap() error { return e.Err }

func wrapError(err error, what string) error {
	switch statusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Err: fmt.Errorf("%s: %w", what, err)}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func statusOf(err error) int {
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	return 0
}

// DryRunClient reads through the wrapped platform and suppresses writes.
type DryRunClient struct {
	Platform
	logger *slog.Logger
}

// NewDryRunClient wraps p so that PostReview only logs.
func NewDryRunClient(p Platform, logger *slog.Logger) *DryRunClient {
	if logger == nil {
		logger = logging.Discard()
	}
	return &DryRunClient{Platform: p, logger: logger}
}

func (d *DryRunClient) PostReview(_ context.Context, owner, repo string, number int, review Review) error {
	d.logger.Info("dry run: review not posted",
		"repo", owner+"/"+repo,
		"pr", number,
		"event", review.Event,
		"comments", len(review.Comments),
	)
	return nil
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo(ctx context.Context) (owner, repo string, err error) {
	out, err := exec.CommandContext(ctx, "git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	return ParseRemoteURL(strings.TrimSpace(string(out)))
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}

// SplitRepository splits an "owner/repo" string.
func SplitRepository(full string) (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}
