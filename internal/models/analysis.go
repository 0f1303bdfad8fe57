package models

// PageRecord is one crawled page. Content is markdown-converted body text
// bounded by the crawler's content cap.
type PageRecord struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	Title    string `json:"title,omitempty"`
	Headline string `json:"headline,omitempty"`
	Content  string `json:"content,omitempty"`
}

// CrawlResult is the ephemeral output of one crawl run. It is never
// persisted wholesale; the pipeline summarizes it into the Job.
type CrawlResult struct {
	Pages      []PageRecord `json:"pages"`
	JSRendered bool         `json:"js_rendered"`
}

// CategoryScores are the 0-10 messaging dimension scores returned by the
// scoring service.
type CategoryScores struct {
	Clarity         int `json:"clarity"`
	Specificity     int `json:"specificity"`
	Proof           int `json:"proof"`
	Differentiation int `json:"differentiation"`
}

// Finding is a before/after phrase rewrite suggestion attached to an issue.
type Finding struct {
	Phrase     string `json:"phrase"`
	Rewrite    string `json:"rewrite"`
	Location   string `json:"location,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
}

// Issue is one ranked messaging problem with its supporting findings.
// Issues are ordered most severe first in AnalysisResult.Issues.
type Issue struct {
	Title    string    `json:"title"`
	Severity string    `json:"severity"` // "high", "medium", "low"
	Findings []Finding `json:"findings,omitempty"`
}

// Confidence is the AI's self-reported certainty a suggested domain is a
// genuine competitor. Used only to prioritize analysis order.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Weight returns a sortable rank for confidence tiers, highest first.
func (c Confidence) Weight() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// SuggestedCompetitor is an AI-suggested competitor domain.
type SuggestedCompetitor struct {
	Domain     string     `json:"domain"`
	Confidence Confidence `json:"confidence"`
}

// AnalysisResult is the full scored output for a job. Attached to the Job
// only once it reaches complete.
type AnalysisResult struct {
	OverallScore         int                   `json:"overall_score"` // 0-100
	Categories           CategoryScores        `json:"categories"`
	Issues               []Issue               `json:"issues"`
	VoiceSummary         string                `json:"voice_summary,omitempty"`
	SuggestedCompetitors []SuggestedCompetitor `json:"suggested_competitors,omitempty"`
	// Comparison is never nil on a complete job; it may be empty or
	// timeout-flagged but is always present.
	Comparison *CompetitorComparison `json:"comparison,omitempty"`
}
