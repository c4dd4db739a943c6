package cli

import (
	"reflect"
	"testing"
)

func TestParse_Out(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		wantOut OutTarget
		wantPR  int
		dryRun  bool
	}{
		{
			name:    "at end of input",
			tokens:  []string{"--pr", "42", "--out"},
			wantOut: OutTarget{Enabled: true},
			wantPR:  42,
		},
		{
			name:    "followed by flag",
			tokens:  []string{"--pr", "42", "--out", "--dry-run"},
			wantOut: OutTarget{Enabled: true},
			wantPR:  42,
			dryRun:  true,
		},
		{
			name:    "followed by path",
			tokens:  []string{"--out", "logs/run.txt", "--pr", "7"},
			wantOut: OutTarget{Enabled: true, Path: "logs/run.txt"},
			wantPR:  7,
		},
		{
			name:    "single dash",
			tokens:  []string{"-out", "x.txt", "--pr", "7"},
			wantOut: OutTarget{Enabled: true, Path: "x.txt"},
			wantPR:  7,
		},
		{
			name:    "single dash at end",
			tokens:  []string{"--pr", "7", "-out"},
			wantOut: OutTarget{Enabled: true},
			wantPR:  7,
		},
		{
			name:    "inline value",
			tokens:  []string{"--out=t.txt", "--pr=7"},
			wantOut: OutTarget{Enabled: true, Path: "t.txt"},
			wantPR:  7,
		},
		{
			name:   "absent",
			tokens: []string{"--pr", "7"},
			wantPR: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.tokens)
			if got.Out != tt.wantOut {
				t.Errorf("Out = %+v, want %+v", got.Out, tt.wantOut)
			}
			if got.PR != tt.wantPR {
				t.Errorf("PR = %d, want %d", got.PR, tt.wantPR)
			}
			if got.DryRun != tt.dryRun {
				t.Errorf("DryRun = %v, want %v", got.DryRun, tt.dryRun)
			}
			if got.Action != ActionReviewPR {
				t.Errorf("Action = %v, want review-pr", got.Action)
			}
		})
	}
}

func TestParse_ListDefaults(t *testing.T) {
	got := Parse([]string{"--list-prs"})
	if got.Action != ActionListPRs {
		t.Errorf("Action = %v", got.Action)
	}
	if got.State != "open" || got.Limit != 10 {
		t.Errorf("State/Limit = %q/%d, want open/10", got.State, got.Limit)
	}
}

func TestParse_ListFlags(t *testing.T) {
	got := Parse([]string{"--list-prs", "--state", "closed", "--limit=3", "--owner", "acme", "--repo=widgets"})
	want := ExecutionArgs{
		Action: ActionListPRs,
		Owner:  "acme",
		Repo:   "widgets",
		State:  "closed",
		Limit:  3,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParse_NoAction(t *testing.T) {
	for _, tokens := range [][]string{nil, {"--dry-run"}, {"--owner", "x"}} {
		if got := Parse(tokens); got.Action != ActionNone {
			t.Errorf("Parse(%v).Action = %v, want none", tokens, got.Action)
		}
	}
}

func TestParse_IgnoredAndInvalid(t *testing.T) {
	got := Parse([]string{"stray", "--verbose", "--pr", "abc", "--limit", "0", "--dry-run=yes"})
	wantIgnored := []string{"stray", "--verbose", "--dry-run=yes"}
	if !reflect.DeepEqual(got.Ignored, wantIgnored) {
		t.Errorf("Ignored = %v, want %v", got.Ignored, wantIgnored)
	}
	if len(got.Invalid) != 2 {
		t.Errorf("Invalid = %v, want 2 entries", got.Invalid)
	}
	if got.Limit != 10 {
		t.Errorf("Limit = %d, want default 10", got.Limit)
	}
}

func TestParse_MissingValue(t *testing.T) {
	got := Parse([]string{"--list-prs", "--owner"})
	if len(got.Invalid) != 1 {
		t.Errorf("Invalid = %v", got.Invalid)
	}
}

func TestParse_ExtraFlags(t *testing.T) {
	got := Parse([]string{"--pr", "#9", "--provider", "openai", "--model", "gpt-4o", "--log-level", "debug", "--debug", "-h"})
	if got.PR != 9 || got.Provider != "openai" || got.Model != "gpt-4o" || got.LogLevel != "debug" || !got.Debug || !got.Help {
		t.Errorf("Parse() = %+v", got)
	}
	ov := got.overrides()
	if ov["provider"] != "openai" || ov["model"] != "gpt-4o" || ov["logLevel"] != "debug" || ov["debug"] != "true" {
		t.Errorf("overrides = %v", ov)
	}
}
