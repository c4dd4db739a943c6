package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/dshills/prreview/internal/actionsenv"
	"github.com/dshills/prreview/internal/config"
	"github.com/dshills/prreview/internal/credentials"
	"github.com/dshills/prreview/internal/github"
	"github.com/dshills/prreview/internal/logging"
	"github.com/dshills/prreview/internal/providers"
	"github.com/dshills/prreview/internal/review"
	"github.com/dshills/prreview/internal/transcript"
)

// CredentialResolver yields the GitHub token.
type CredentialResolver interface {
	Resolve(ctx context.Context) (credentials.Credential, error)
}

// PullRequestHandler runs the review flow for one pull request.
type PullRequestHandler interface {
	HandlePullRequest(ctx context.Context, cfg review.Config, out io.Writer) error
}

// Dispatcher runs the flow selected by ExecutionArgs. Every collaborator is
// a field so tests can substitute it; NewDispatcher wires the real ones.
type Dispatcher struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string

	Resolver    CredentialResolver
	NewPlatform func(token string) (github.Platform, error)
	NewHandler  func(platform github.Platform, logger *slog.Logger) PullRequestHandler
	DetectRepo  func(ctx context.Context) (owner, repo string, err error)
	LoadConfig  func(overrides map[string]string) (config.Config, error)
	Shim        actionsenv.Shim
}

// NewDispatcher returns a dispatcher bound to the process streams,
// environment and the real GitHub and model backends.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
		NewPlatform: func(token string) (github.Platform, error) {
			return github.NewClient(token, os.Getenv("GITHUB_API_URL"))
		},
		NewHandler: func(p github.Platform, logger *slog.Logger) PullRequestHandler {
			return review.NewHandler(p, logger)
		},
		DetectRepo: github.DetectRepo,
		LoadConfig: config.Load,
	}
}

// Dispatch executes args and returns the process exit code. Argument
// problems are warnings; an invocation with no usable action prints usage.
func (d *Dispatcher) Dispatch(ctx context.Context, args ExecutionArgs) (code int) {
	if len(args.Invalid) > 0 {
		warn := logging.NewLogger(d.Stderr, slog.LevelWarn)
		for _, msg := range args.Invalid {
			warn.Warn("ignoring invalid argument", "detail", msg)
		}
	}
	if args.Help || args.Action == ActionNone {
		fmt.Fprint(d.Stdout, usage)
		return ExitSuccess
	}

	cfg, err := d.LoadConfig(args.overrides())
	if err != nil {
		fmt.Fprintf(d.Stderr, "Error: %v\n", err)
		return ExitUsageError
	}

	// A review run records everything from here on, credential warnings
	// included.
	stdout, stderr := d.Stdout, d.Stderr
	if args.Action == ActionReviewPR {
		capture := transcript.Begin(args.Out, cfg.OutputDir, strconv.Itoa(args.PR), d.Stdout, d.Stderr)
		defer func() {
			if err := capture.Release(); err != nil {
				fmt.Fprintf(d.Stderr, "Error: %v\n", err)
				if code == ExitSuccess {
					code = ExitRuntimeError
				}
			}
		}()
		stdout, stderr = capture.Stdout(), capture.Stderr()
	}

	logger := logging.NewLogger(stderr, logging.ParseLevel(levelFor(cfg)))
	if len(args.Ignored) > 0 {
		logger.Debug("ignoring unrecognized arguments", "args", args.Ignored)
	}

	owner, repo := d.resolveRepo(ctx, args, logger)

	resolver := d.Resolver
	if resolver == nil {
		resolver = credentials.NewResolver(logger)
	}
	cred, err := resolver.Resolve(ctx)
	if err != nil {
		return fail(stderr, err)
	}
	platform, err := d.NewPlatform(cred.Token)
	if err != nil {
		return fail(stderr, err)
	}

	switch args.Action {
	case ActionListPRs:
		return d.listPRs(ctx, platform, stdout, stderr, owner, repo, args)
	default:
		return d.reviewPR(ctx, platform, cfg, logger, stdout, stderr, owner, repo, args)
	}
}

func (d *Dispatcher) listPRs(ctx context.Context, platform github.Platform, stdout, stderr io.Writer, owner, repo string, args ExecutionArgs) int {
	prs, err := platform.ListPullRequests(ctx, owner, repo, args.State, args.Limit)
	if err != nil {
		return fail(stderr, err)
	}
	for _, pr := range prs {
		fmt.Fprintf(stdout, "#%d %s (@%s)\n", pr.Number, pr.Title, pr.Author)
	}
	return ExitSuccess
}

func (d *Dispatcher) reviewPR(ctx context.Context, platform github.Platform, cfg config.Config, logger *slog.Logger, stdout, stderr io.Writer, owner, repo string, args ExecutionArgs) int {
	family, err := providers.ParseFamily(cfg.Provider)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsageError
	}

	ev := actionsenv.PullRequestSync(owner, repo, args.PR)
	env, err := d.Shim.Apply(ev, actionsenv.Options{DryRun: args.DryRun, Debug: cfg.Debug})
	if err != nil {
		return fail(stderr, err)
	}

	rcfg := review.Config{
		Owner:       env.Owner,
		Repo:        repo,
		PR:          env.PRNumber,
		EventName:   env.EventName,
		EventAction: ev.Action,
		DryRun:      env.DryRun,
		Debug:       cfg.Debug,
		Provider:    string(family),
		Model:       cfg.Model,
		APIKey:      providers.APIKeyFromEnv(family, d.Getenv),
		Temperature: cfg.Temperature,
		MaxFindings: cfg.MaxFindings,
		Redact:      cfg.Privacy.Redact(),
	}

	handler := d.NewHandler(platform, logger)
	if err := handler.HandlePullRequest(ctx, rcfg, stdout); err != nil {
		return fail(stderr, err)
	}
	return ExitSuccess
}

// resolveRepo applies the owner/repo defaults: flags, then
// GITHUB_REPOSITORY, then the git remote, then the built-in fallback.
func (d *Dispatcher) resolveRepo(ctx context.Context, args ExecutionArgs, logger *slog.Logger) (string, string) {
	owner, repo := args.Owner, args.Repo
	if owner != "" && repo != "" {
		return owner, repo
	}

	defOwner, defRepo, ok := github.SplitRepository(d.Getenv("GITHUB_REPOSITORY"))
	if !ok && d.DetectRepo != nil {
		var err error
		defOwner, defRepo, err = d.DetectRepo(ctx)
		if err != nil {
			logger.Debug("repository detection failed", "err", err)
		} else {
			ok = true
		}
	}
	if !ok {
		defOwner, defRepo, _ = github.SplitRepository(config.FallbackRepo)
	}

	if owner == "" {
		owner = defOwner
	}
	if repo == "" {
		repo = defRepo
	}
	return owner, repo
}

func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %v\n", err)
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	var noCred *credentials.NoCredentialError
	var ghAuth *github.AuthError
	if errors.As(err, &noCred) || errors.As(err, &ghAuth) || providers.IsAuthError(err) {
		return ExitAuthError
	}
	return ExitRuntimeError
}

func levelFor(cfg config.Config) string {
	if cfg.Debug {
		return "debug"
	}
	return cfg.LogLevel
}
