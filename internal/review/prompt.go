package review

import (
	"fmt"
	"slices"
	"strings"
)

const systemPrompt = `You are a strict, expert code reviewer. Your job is to review a pull request diff and report structured findings.

Rules:
1. Only review the changes shown in the diff. Do not comment on unchanged code.
2. Focus on bugs, security issues, performance problems, and correctness. Avoid bikeshedding on style unless it impacts readability significantly.
3. Be concise and actionable. Every finding must include a concrete suggestion.
4. Reference line numbers of the new file version from the diff hunks.
5. Rate severity as "low", "medium", or "high" and confidence from 0.0 to 1.0.

Return an object with a "findings" array. If there are no issues, return an empty array.`

// SystemPrompt returns the system prompt for the model.
func SystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt constructs the user prompt from the diff and changed files.
func BuildUserPrompt(title, diff string, files []string, maxFindings int) string {
	var b strings.Builder

	if title != "" {
		fmt.Fprintf(&b, "Review the following pull request: %s\n\n", title)
	} else {
		b.WriteString("Review the following pull request.\n\n")
	}

	if maxFindings > 0 {
		fmt.Fprintf(&b, "Return at most %d findings.\n", maxFindings)
	}

	if langs := detectLanguages(files); len(langs) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(langs, ", "))
	}
	if len(files) > 0 {
		fmt.Fprintf(&b, "Changed files: %s\n", strings.Join(files, ", "))
	}

	b.WriteString("\n--- BEGIN DIFF ---\n")
	b.WriteString(diff)
	b.WriteString("\n--- END DIFF ---\n")

	return b.String()
}

var langByExt = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript/React",
	".jsx":   "JavaScript/React",
	".rs":    "Rust",
	".java":  "Java",
	".rb":    "Ruby",
	".cpp":   "C++",
	".c":     "C",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".kt":    "Kotlin",
	".sql":   "SQL",
	".sh":    "Shell",
	".yaml":  "YAML",
	".yml":   "YAML",
	".tf":    "Terraform",
}

// detectLanguages lists languages by file extension, in first-seen order.
func detectLanguages(files []string) []string {
	var langs []string
	for _, f := range files {
		i := strings.LastIndexByte(f, '.')
		if i < 0 {
			continue
		}
		lang, ok := langByExt[strings.ToLower(f[i:])]
		if ok && !slices.Contains(langs, lang) {
			langs = append(langs, lang)
		}
	}
	return langs
}
