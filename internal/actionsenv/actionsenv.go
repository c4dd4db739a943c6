// Package actionsenv emulates the GitHub Actions environment for local runs,
// so the review flow sees the same event context it would get in CI.
package actionsenv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/caarlos0/env/v11"
)

const (
	EventPullRequest  = "pull_request"
	ActionSynchronize = "synchronize"
)

// Event describes the single hosted-automation event being simulated.
type Event struct {
	Name   string
	Action string
	Number int
	Owner  string
	Repo   string
}

// PullRequestSync returns a synchronize pull_request event for the PR.
func PullRequestSync(owner, repo string, number int) Event {
	return Event{
		Name:   EventPullRequest,
		Action: ActionSynchronize,
		Number: number,
		Owner:  owner,
		Repo:   repo,
	}
}

// Options are run modes exported alongside the event.
type Options struct {
	DryRun bool
	Debug  bool
}

// Context is the Actions context as the review flow reads it.
type Context struct {
	Actions    bool   `env:"GITHUB_ACTIONS"`
	EventName  string `env:"GITHUB_EVENT_NAME"`
	EventPath  string `env:"GITHUB_EVENT_PATH"`
	Repository string `env:"GITHUB_REPOSITORY"`
	Owner      string `env:"GITHUB_REPOSITORY_OWNER"`
	PRNumber   int    `env:"PR_NUMBER"`
	DryRun     bool   `env:"DRY_RUN"`
	Debug      bool   `env:"DEBUG"`
	Local      bool   `env:"ACT"`
}

// Shim writes the synthesized variables and event payload.
type Shim struct {
	// Dir receives the event payload file; defaults to os.TempDir().
	Dir string
	// Setenv defaults to os.Setenv.
	Setenv func(string, string) error
}

// Vars returns the environment variables for ev, excluding the event path.
func Vars(ev Event, opts Options) map[string]string {
	vars := map[string]string{
		"GITHUB_ACTIONS":          "true",
		"GITHUB_EVENT_NAME":       ev.Name,
		"GITHUB_REPOSITORY":       ev.Owner + "/" + ev.Repo,
		"GITHUB_REPOSITORY_OWNER": ev.Owner,
		"PR_NUMBER":               strconv.Itoa(ev.Number),
		"DRY_RUN":                 strconv.FormatBool(opts.DryRun),
		"ACT":                     "true",
	}
	if opts.Debug {
		vars["DEBUG"] = "true"
	}
	return vars
}

// Apply writes the event payload, exports the variables and returns the
// resulting context.
func (s Shim) Apply(ev Event, opts Options) (Context, error) {
	if ev.Number <= 0 {
		return Context{}, fmt.Errorf("pull request number must be positive, got %d", ev.Number)
	}
	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	setenv := s.Setenv
	if setenv == nil {
		setenv = os.Setenv
	}

	path, err := WriteEvent(dir, ev)
	if err != nil {
		return Context{}, err
	}

	vars := Vars(ev, opts)
	vars["GITHUB_EVENT_PATH"] = path

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := setenv(k, vars[k]); err != nil {
			return Context{}, fmt.Errorf("setting %s: %w", k, err)
		}
	}

	return Parse(vars)
}

// Parse reads a Context out of a variable map.
func Parse(vars map[string]string) (Context, error) {
	var c Context
	if err := env.ParseWithOptions(&c, env.Options{Environment: vars}); err != nil {
		return Context{}, fmt.Errorf("parsing actions environment: %w", err)
	}
	return c, nil
}

type eventPayload struct {
	Action      string          `json:"action"`
	Number      int             `json:"number"`
	PullRequest pullRequestInfo `json:"pull_request"`
	Repository  repositoryInfo  `json:"repository"`
}

type pullRequestInfo struct {
	Number int `json:"number"`
}

type repositoryInfo struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// WriteEvent writes the webhook-shaped payload for ev and returns its path.
func WriteEvent(dir string, ev Event) (string, error) {
	payload := eventPayload{
		Action:      ev.Action,
		Number:      ev.Number,
		PullRequest: pullRequestInfo{Number: ev.Number},
		Repository: repositoryInfo{
			Name:     ev.Repo,
			FullName: ev.Owner + "/" + ev.Repo,
		},
	}
	payload.Repository.Owner.Login = ev.Owner

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling event: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating event directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("prreview-event-%d.json", ev.Number))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing event payload: %w", err)
	}
	return path, nil
}

// ReadEvent loads a payload written by WriteEvent (or by GitHub).
func ReadEvent(path string) (action string, number int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("reading event payload: %w", err)
	}
	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", 0, fmt.Errorf("parsing event payload: %w", err)
	}
	number = p.Number
	if number == 0 {
		number = p.PullRequest.Number
	}
	return p.Action, number, nil
}
