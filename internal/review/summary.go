package review

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteSummary prints a human-readable report of findings for one PR.
func WriteSummary(w io.Writer, cfg Config, findings []Finding) error {
	ew := &errWriter{w: w}
	s := ComputeSummary(findings)

	ew.printf("PR Review: %s/%s#%d\n", cfg.Owner, cfg.Repo, cfg.PR)
	ew.println(strings.Repeat("─", 60))
	ew.printf("Findings: %d total", len(findings))
	if len(findings) > 0 {
		ew.printf(" (%d high, %d medium, %d low)", s.Counts.High, s.Counts.Medium, s.Counts.Low)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if len(findings) == 0 {
		ew.println("\nNo issues found. Looks good!")
		return ew.err
	}

	grouped := make(map[Severity][]Finding)
	for _, f := range findings {
		grouped[f.Severity] = append(grouped[f.Severity], f)
	}
	for _, sev := range []Severity{SeverityHigh, SeverityMedium, SeverityLow} {
		group := grouped[sev]
		if len(group) == 0 {
			continue
		}

		ew.printf("\n%s %s\n", severityIcon(sev), strings.ToUpper(string(sev)))
		ew.println(strings.Repeat("─", 40))

		sort.SliceStable(group, func(i, j int) bool { return group[i].Path < group[j].Path })

		for _, f := range group {
			path := f.Path
			if path == "" {
				path = "unknown"
			}
			ew.printf("\n  %s:%d-%d  %s\n", path, f.StartLine, f.EndLine, f.Title)
			ew.printf("  Category: %s | Confidence: %.0f%%\n", f.Category, f.Confidence*100)
			for _, line := range wrapText(f.Message, 70) {
				ew.printf("    %s\n", line)
			}
			if f.Suggestion != "" {
				ew.println("  Suggestion:")
				for _, line := range wrapText(f.Suggestion, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}
	ew.printf("\n%s\n", strings.Repeat("─", 60))
	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s Severity) string {
	switch s {
	case SeverityHigh:
		return "[!!]"
	case SeverityMedium:
		return "[!]"
	case SeverityLow:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
