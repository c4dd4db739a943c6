package review

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Category represents the type of finding.
type Category string

const (
	CategoryBug             Category = "bug"
	CategorySecurity        Category = "security"
	CategoryPerformance     Category = "performance"
	CategoryCorrectness     Category = "correctness"
	CategoryStyle           Category = "style"
	CategoryMaintainability Category = "maintainability"
	CategoryTesting         Category = "testing"
	CategoryDocs            Category = "docs"
)

// Finding is a single review observation as produced by the model. Every
// field is required so strict structured-output modes accept the schema.
type Finding struct {
	Severity   Severity `json:"severity" jsonschema:"enum=low,enum=medium,enum=high"`
	Category   Category `json:"category" jsonschema:"enum=bug,enum=security,enum=performance,enum=correctness,enum=style,enum=maintainability,enum=testing,enum=docs"`
	Title      string   `json:"title" jsonschema:"description=Short descriptive title"`
	Message    string   `json:"message" jsonschema:"description=What is wrong and why it matters"`
	Suggestion string   `json:"suggestion" jsonschema:"description=How to fix it"`
	Confidence float64  `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Path       string   `json:"path" jsonschema:"description=File path relative to the repository root"`
	StartLine  int      `json:"startLine"`
	EndLine    int      `json:"endLine"`
}

// Line is the line a finding should be anchored to in a review comment.
func (f Finding) Line() int {
	if f.EndLine > 0 {
		return f.EndLine
	}
	return f.StartLine
}

// Result is the structured object requested from the model.
type Result struct {
	Findings []Finding `json:"findings"`
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Low    int
	Medium int
	High   int
}

// Summary provides an overview of findings.
type Summary struct {
	Counts          SeverityCounts
	HighestSeverity Severity
}

// ComputeSummary calculates the summary from findings.
func ComputeSummary(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityLow:
			s.Counts.Low++
		case SeverityMedium:
			s.Counts.Medium++
		case SeverityHigh:
			s.Counts.High++
		}
		if SeverityRank(f.Severity) > SeverityRank(s.HighestSeverity) {
			s.HighestSeverity = f.Severity
		}
	}
	return s
}
