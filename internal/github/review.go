package github

import (
	"fmt"
	"strings"
)

// Finding is one model observation to be rendered into a review.
type Finding struct {
	Path       string
	Line       int
	Severity   string
	Title      string
	Message    string
	Suggestion string
}

// ReviewComment is an inline comment on a PR review.
type ReviewComment struct {
	Path string
	Line int
	Body string
}

// Review is a PR review to post.
type Review struct {
	Body     string
	Event    string
	Comments []ReviewComment
}

// BuildReview converts findings into a review. Findings that point at a line
// of a file in diffFiles become inline comments; the rest go in the body.
func BuildReview(findings []Finding, diffFiles map[string]bool) Review {
	counts := map[string]int{}
	var bodyComments []string
	var comments []ReviewComment

	for _, f := range findings {
		counts[normalizeSeverity(f.Severity)]++

		if f.Path != "" && f.Line > 0 && diffFiles[f.Path] {
			comments = append(comments, ReviewComment{
				Path: f.Path,
				Line: f.Line,
				Body: formatInlineComment(f),
			})
			continue
		}
		bodyComments = append(bodyComments, formatFindingBody(f))
	}

	var sb strings.Builder
	sb.WriteString("## PR Review\n\n")
	if len(findings) == 0 {
		sb.WriteString("No issues found.\n")
	} else {
		sb.WriteString("| Severity | Count |\n|----------|-------|\n")
		fmt.Fprintf(&sb, "| High | %d |\n", counts["high"])
		fmt.Fprintf(&sb, "| Medium | %d |\n", counts["medium"])
		fmt.Fprintf(&sb, "| Low | %d |\n\n", counts["low"])
	}

	if len(bodyComments) > 0 {
		sb.WriteString("### General Findings\n\n")
		for _, c := range bodyComments {
			sb.WriteString(c)
			sb.WriteString("\n\n")
		}
	}

	return Review{
		Body:     sb.String(),
		Event:    "COMMENT",
		Comments: comments,
	}
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(s) {
	case "high", "critical":
		return "high"
	case "medium":
		return "medium"
	default:
		return "low"
	}
}

func formatInlineComment(f Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** (%s)\n\n", f.Title, normalizeSeverity(f.Severity))
	sb.WriteString(f.Message)
	if f.Suggestion != "" {
		fmt.Fprintf(&sb, "\n\n**Suggestion:**\n```\n%s\n```", f.Suggestion)
	}
	return sb.String()
}

func formatFindingBody(f Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- **%s** (%s): %s", f.Title, normalizeSeverity(f.Severity), f.Message)
	if f.Path != "" {
		fmt.Fprintf(&sb, " `%s`", f.Path)
	}
	if f.Suggestion != "" {
		fmt.Fprintf(&sb, " *Suggestion: %s*", f.Suggestion)
	}
	return sb.String()
}
