// Package credentials resolves the GitHub access token used by every
// platform-facing flow.
//
// Sources are tried in order: the process environment, a local .env file,
// then the GitHub CLI session (`gh auth token`). The first non-empty token
// wins and is cached for the life of the Resolver.
package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dshills/prreview/internal/logging"
)

// Source names where a token came from.
type Source string

const (
	SourceEnv    Source = "env"
	SourceDotenv Source = "dotenv"
	SourceGHCLI  Source = "gh-cli"
)

// LocalRunFlag is set once a token is resolved so downstream authorization
// checks recognise a run outside GitHub Actions.
const LocalRunFlag = "ACT"

// tokenKeys are checked in order in both the environment and the .env file.
var tokenKeys = []string{"GITHUB_TOKEN", "GH_TOKEN"}

// Credential is a resolved access token and where it came from.
type Credential struct {
	Token  string
	Source Source
}

// NoCredentialError is returned when no source yields a token.
type NoCredentialError struct {
	Tried []Source
}

func (e *NoCredentialError) Error() string {
	tried := make([]string, len(e.Tried))
	for i, s := range e.Tried {
		tried[i] = string(s)
	}
	return fmt.Sprintf("no GitHub token found (tried %s): set GITHUB_TOKEN, add it to .env, or run 'gh auth login'",
		strings.Join(tried, ", "))
}

// ExternalProcessError wraps a failed session-token command.
type ExternalProcessError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ExternalProcessError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Command, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExternalProcessError) Unwrap() error { return e.Err }

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Resolver resolves and caches a Credential.
type Resolver struct {
	// EnvFile is the .env path; defaults to ".env" in the working directory.
	EnvFile string
	// Run executes the gh CLI; defaults to os/exec.
	Run CommandRunner
	// Getenv and Setenv default to the os package.
	Getenv func(string) string
	Setenv func(string, string) error
	Logger *slog.Logger

	cached     *Credential
	dotenv     map[string]string
	dotenvRead bool
}

// NewResolver returns a Resolver wired to the real process environment.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{Logger: logger}
}

// Resolve returns the cached credential or resolves one. On success the
// token is exported as GITHUB_TOKEN and the local-run flag is set.
func (r *Resolver) Resolve(ctx context.Context) (Credential, error) {
	if r.cached != nil {
		return *r.cached, nil
	}
	r.defaults()

	cred, err := r.resolve(ctx)
	if err != nil {
		return Credential{}, err
	}

	if err := r.Setenv("GITHUB_TOKEN", cred.Token); err != nil {
		return Credential{}, fmt.Errorf("exporting GITHUB_TOKEN: %w", err)
	}
	if err := r.Setenv(LocalRunFlag, "true"); err != nil {
		return Credential{}, fmt.Errorf("setting %s: %w", LocalRunFlag, err)
	}
	r.Logger.Debug("github token resolved", "source", cred.Source)

	r.cached = &cred
	return cred, nil
}

func (r *Resolver) resolve(ctx context.Context) (Credential, error) {
	for _, key := range tokenKeys {
		if tok := strings.TrimSpace(r.Getenv(key)); tok != "" {
			return Credential{Token: tok, Source: SourceEnv}, nil
		}
	}

	vars := r.loadDotenv()
	for _, key := range tokenKeys {
		if tok := strings.TrimSpace(vars[key]); tok != "" {
			return Credential{Token: tok, Source: SourceDotenv}, nil
		}
	}

	tok, err := r.ghToken(ctx)
	if err != nil {
		r.Logger.Warn("gh CLI session unavailable", "error", err)
	}
	if tok != "" {
		return Credential{Token: tok, Source: SourceGHCLI}, nil
	}

	return Credential{}, &NoCredentialError{Tried: []Source{SourceEnv, SourceDotenv, SourceGHCLI}}
}

// loadDotenv reads the .env file once. A missing file is silent; any other
// failure is logged and treated as empty.
func (r *Resolver) loadDotenv() map[string]string {
	if r.dotenvRead {
		return r.dotenv
	}
	r.dotenvRead = true

	vars, err := godotenv.Read(r.EnvFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.Logger.Warn("ignoring unreadable env file", "path", r.EnvFile, "error", err)
		}
		return nil
	}
	r.dotenv = vars
	return vars
}

func (r *Resolver) ghToken(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, "gh", "auth", "token")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *Resolver) defaults() {
	if r.EnvFile == "" {
		r.EnvFile = ".env"
	}
	if r.Run == nil {
		r.Run = execCommand
	}
	if r.Getenv == nil {
		r.Getenv = os.Getenv
	}
	if r.Setenv == nil {
		r.Setenv = os.Setenv
	}
	if r.Logger == nil {
		r.Logger = logging.Discard()
	}
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	command := name + " " + strings.Join(args, " ")
	if _, err := exec.LookPath(name); err != nil {
		return nil, &ExternalProcessError{Command: command, Err: err}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ExternalProcessError{
			Command: command,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}
