package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dshills/prreview/internal/github"
	"github.com/dshills/prreview/internal/inference"
	"github.com/dshills/prreview/internal/logging"
	"github.com/dshills/prreview/internal/providers"
	"github.com/dshills/prreview/internal/schema"
)

// Config is everything one review run needs.
type Config struct {
	Owner       string
	Repo        string
	PR          int
	EventName   string
	EventAction string
	DryRun      bool
	Debug       bool

	Provider    string
	Model       string
	APIKey      string
	Temperature float64
	MaxFindings int
	Redact      bool
}

// Validate reports missing or inconsistent fields.
func (c Config) Validate() error {
	var errs []error
	if c.Owner == "" || c.Repo == "" {
		errs = append(errs, errors.New("repository owner and name are required"))
	}
	if c.PR <= 0 {
		errs = append(errs, fmt.Errorf("invalid pull request number %d", c.PR))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	return errors.Join(errs...)
}

// supportedActions are the pull_request event actions that trigger a review.
var supportedActions = map[string]bool{
	"opened":           true,
	"synchronize":      true,
	"reopened":         true,
	"ready_for_review": true,
}

// OpenFunc opens an inference provider for a family and model.
type OpenFunc func(ctx context.Context, family providers.Family, model, apiKey string) (*inference.Provider, error)

// Handler runs reviews against a code host.
type Handler struct {
	Platform github.Platform
	Open     OpenFunc
	Logger   *slog.Logger
}

// NewHandler returns a handler that opens real model backends.
func NewHandler(platform github.Platform, logger *slog.Logger) *Handler {
	return &Handler{Platform: platform, Open: inference.Open, Logger: logger}
}

var findingsSchema = schema.MustFor[Result]()

// HandlePullRequest reviews cfg.PR and writes a summary to out. The review
// is posted to the pull request unless cfg.DryRun is set.
func (h *Handler) HandlePullRequest(ctx context.Context, cfg Config, out io.Writer) error {
	logger := h.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("review config: %w", err)
	}
	if cfg.EventName != "" && cfg.EventName != "pull_request" {
		logger.Info("skipping unsupported event", "event", cfg.EventName)
		return nil
	}
	if cfg.EventAction != "" && !supportedActions[cfg.EventAction] {
		logger.Info("skipping pull_request action", "action", cfg.EventAction)
		return nil
	}

	platform := h.Platform
	if cfg.DryRun {
		platform = github.NewDryRunClient(platform, logger)
	}

	logger.Info("reviewing pull request", "repo", cfg.Owner+"/"+cfg.Repo, "pr", cfg.PR, "dry_run", cfg.DryRun)

	diff, err := platform.GetDiff(ctx, cfg.Owner, cfg.Repo, cfg.PR)
	if err != nil {
		return err
	}
	files, err := platform.ListFiles(ctx, cfg.Owner, cfg.Repo, cfg.PR)
	if err != nil {
		return err
	}

	if strings.TrimSpace(diff) == "" {
		fmt.Fprintln(out, "No changes to review.")
		return nil
	}
	if cfg.Redact {
		var n int
		diff, n = RedactSecrets(diff)
		if n > 0 {
			logger.Warn("redacted secrets from diff", "count", n)
		}
	}

	family, err := providers.ParseFamily(cfg.Provider)
	if err != nil {
		return err
	}
	provider, err := h.Open(ctx, family, cfg.Model, cfg.APIKey)
	if err != nil {
		return err
	}
	provider.Debug = cfg.Debug
	provider.Logger = logger
	if provider.MaxTokens == 0 {
		provider.MaxTokens = 8192
	}

	names := make([]string, len(files))
	diffFiles := make(map[string]bool, len(files))
	for i, f := range files {
		names[i] = f.Filename
		diffFiles[f.Filename] = true
	}

	temp := cfg.Temperature
	result, err := inference.Run(ctx, provider, inference.Request[Result]{
		System:      SystemPrompt(),
		Prompt:      BuildUserPrompt("", diff, names, cfg.MaxFindings),
		Temperature: &temp,
		Schema:      findingsSchema,
	})
	if err != nil {
		return fmt.Errorf("reviewing PR #%d: %w", cfg.PR, err)
	}

	findings := result.Findings
	if cfg.MaxFindings > 0 && len(findings) > cfg.MaxFindings {
		findings = findings[:cfg.MaxFindings]
	}

	if err := WriteSummary(out, cfg, findings); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	rev := github.BuildReview(toGitHubFindings(findings), diffFiles)
	if err := platform.PostReview(ctx, cfg.Owner, cfg.Repo, cfg.PR, rev); err != nil {
		return err
	}
	if !cfg.DryRun {
		logger.Info("review posted", "pr", cfg.PR, "comments", len(rev.Comments))
	}
	return nil
}

func toGitHubFindings(findings []Finding) []github.Finding {
	out := make([]github.Finding, len(findings))
	for i, f := range findings {
		out[i] = github.Finding{
			Path:       f.Path,
			Line:       f.Line(),
			Severity:   string(f.Severity),
			Title:      f.Title,
			Message:    f.Message,
			Suggestion: f.Suggestion,
		}
	}
	return out
}
