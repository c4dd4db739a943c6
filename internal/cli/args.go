package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/prreview/internal/transcript"
)

// Action is the flow selected on the command line.
type Action int

const (
	ActionNone Action = iota
	ActionListPRs
	ActionReviewPR
)

func (a Action) String() string {
	switch a {
	case ActionListPRs:
		return "list-prs"
	case ActionReviewPR:
		return "review-pr"
	default:
		return "none"
	}
}

const (
	defaultState = "open"
	defaultLimit = 10
)

// OutTarget is the parsed --out option.
type OutTarget = transcript.Target

// ExecutionArgs is the parsed command intent. It is built once by Parse and
// passed by value afterwards.
type ExecutionArgs struct {
	Action Action
	Owner  string
	Repo   string
	State  string
	Limit  int
	PR     int
	DryRun bool
	Out    OutTarget

	Debug    bool
	Provider string
	Model    string
	LogLevel string
	Help     bool

	// Ignored holds unrecognized tokens.
	Ignored []string
	// Invalid holds messages for recognized flags with unusable values.
	Invalid []string
}

// valueFlags take a value, either inline (--flag=value) or as the next token.
var valueFlags = map[string]bool{
	"state":     true,
	"limit":     true,
	"pr":        true,
	"owner":     true,
	"repo":      true,
	"provider":  true,
	"model":     true,
	"log-level": true,
}

// Parse interprets raw argument tokens. It never fails; problems are
// reported through Ignored and Invalid.
func Parse(tokens []string) ExecutionArgs {
	args := ExecutionArgs{State: defaultState, Limit: defaultLimit}
	listPRs := false

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		name, inline, hasInline := splitFlag(tok)
		if name == "" {
			args.Ignored = append(args.Ignored, tok)
			continue
		}

		switch {
		case name == "out":
			args.Out.Enabled = true
			if hasInline {
				args.Out.Path = inline
			} else if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
				i++
				args.Out.Path = tokens[i]
			}
			continue
		case valueFlags[name]:
			value := inline
			if !hasInline {
				if i+1 >= len(tokens) {
					args.Invalid = append(args.Invalid, fmt.Sprintf("--%s requires a value", name))
					continue
				}
				i++
				value = tokens[i]
			}
			args.setValue(name, value)
			continue
		}

		if hasInline {
			args.Ignored = append(args.Ignored, tok)
			continue
		}
		switch name {
		case "list-prs":
			listPRs = true
		case "dry-run":
			args.DryRun = true
		case "debug":
			args.Debug = true
		case "help", "h":
			args.Help = true
		default:
			args.Ignored = append(args.Ignored, tok)
		}
	}

	switch {
	case listPRs:
		args.Action = ActionListPRs
	case args.PR > 0:
		args.Action = ActionReviewPR
	}
	return args
}

func (a *ExecutionArgs) setValue(name, value string) {
	switch name {
	case "state":
		switch value {
		case "open", "closed", "all":
			a.State = value
		default:
			a.Invalid = append(a.Invalid, fmt.Sprintf("--state must be open, closed or all, got %q", value))
		}
	case "limit":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			a.Invalid = append(a.Invalid, fmt.Sprintf("--limit must be a positive integer, got %q", value))
			return
		}
		a.Limit = n
	case "pr":
		n, err := strconv.Atoi(strings.TrimPrefix(value, "#"))
		if err != nil || n <= 0 {
			a.Invalid = append(a.Invalid, fmt.Sprintf("--pr must be a positive integer, got %q", value))
			return
		}
		a.PR = n
	case "owner":
		a.Owner = value
	case "repo":
		a.Repo = value
	case "provider":
		a.Provider = value
	case "model":
		a.Model = value
	case "log-level":
		a.LogLevel = value
	}
}

// splitFlag returns the flag name of tok and any inline value. Long flags
// use "--"; the single-dash spellings -out and -h are also accepted. name is
// empty when tok is not a flag.
func splitFlag(tok string) (name, value string, hasValue bool) {
	var body string
	switch {
	case strings.HasPrefix(tok, "--") && len(tok) > 2:
		body = tok[2:]
	case tok == "-h", tok == "-out", strings.HasPrefix(tok, "-out="):
		body = tok[1:]
	default:
		return "", "", false
	}
	name, value, hasValue = strings.Cut(body, "=")
	return name, value, hasValue
}

// overrides maps flag values onto config.Load override keys.
func (a ExecutionArgs) overrides() map[string]string {
	m := make(map[string]string)
	if a.Provider != "" {
		m["provider"] = a.Provider
	}
	if a.Model != "" {
		m["model"] = a.Model
	}
	if a.LogLevel != "" {
		m["logLevel"] = a.LogLevel
	}
	if a.Debug {
		m["debug"] = "true"
	}
	return m
}
