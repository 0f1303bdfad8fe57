package models

import (
	"time"
)

// JobStatus represents the state of an analysis job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCrawling  JobStatus = "crawling"
	JobStatusAnalyzing JobStatus = "analyzing"
	JobStatusComplete  JobStatus = "complete"
	JobStatusFailed    JobStatus = "failed"
)

// EnrichmentStatus represents the state of the independent enrichment
// sub-machine. The zero value means no enrichment has been requested.
type EnrichmentStatus string

const (
	EnrichmentStatusNone      EnrichmentStatus = ""
	EnrichmentStatusAnalyzing EnrichmentStatus = "analyzing_competitors"
	EnrichmentStatusComplete  EnrichmentStatus = "complete"
	EnrichmentStatusFailed    EnrichmentStatus = "failed"
)

// jobTransitions is the legal forward-transition table. The failed state is
// absorbing: it has no outgoing edges.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:   {JobStatusCrawling, JobStatusFailed},
	JobStatusCrawling:  {JobStatusAnalyzing, JobStatusFailed},
	JobStatusAnalyzing: {JobStatusComplete, JobStatusFailed},
	JobStatusComplete:  {},
	JobStatusFailed:    {},
}

// ValidTransition reports whether a job may move from one status to another.
func ValidTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func (s JobStatus) IsTerminal() bool {
	return len(jobTransitions[s]) == 0
}

// Job is the persisted record representing one analysis run. It lives in the
// job store under its ID and is mutated exclusively through the jobs service.
type Job struct {
	ID     string    `json:"id"`
	URL    string    `json:"url"`
	Email  string    `json:"email,omitempty"`
	Status JobStatus `json:"status"`
	// Progress is a coarse hand-assigned percentage per phase. It is a UX
	// signal only and must advance monotonically within a phase.
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`

	// Live crawl counters, patched fire-and-forget from the crawl callback.
	PagesCrawled int      `json:"pages_crawled"`
	PagesFound   int      `json:"pages_found"`
	CurrentPath  string   `json:"current_path,omitempty"`
	CrawledPaths []string `json:"crawled_paths,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Preview is always visible; Results is attached only once the job is
	// complete and is gated by Paid at the API boundary.
	Preview *PreviewSummary `json:"preview,omitempty"`
	Results *AnalysisResult `json:"results,omitempty"`

	// Paid never reverts to false once set.
	Paid bool `json:"paid"`

	Enrichment EnrichmentState `json:"enrichment"`
}

// EnrichmentState is the sub-state for the user-driven enrichment pipeline.
// It is re-enterable: a new enrichment request restarts it from analyzing.
type EnrichmentState struct {
	Status   EnrichmentStatus `json:"status,omitempty"`
	Progress int              `json:"progress,omitempty"`
	Message  string           `json:"message,omitempty"`
	// PendingCompetitors accumulates every domain the user has submitted,
	// deduplicated, for idempotent resubmission handling.
	PendingCompetitors []string `json:"pending_competitors,omitempty"`
	SocialURLs         []string `json:"social_urls,omitempty"`
	// CompetitorProgress is the transient per-competitor UI status list.
	// It exists only while a batch is in flight and is cleared on completion.
	CompetitorProgress []CompetitorProgressEntry `json:"competitor_progress,omitempty"`
}

// PreviewSummary is the unpaid teaser derived at completion.
type PreviewSummary struct {
	OverallScore int      `json:"overall_score"`
	TopIssues    []string `json:"top_issues"`
	PageCount    int      `json:"page_count"`
}
