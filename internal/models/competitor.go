package models

import (
	"sort"
	"time"
)

// QuotedPoint is one strength or weakness backed by a verbatim quote from
// the competitor's page.
type QuotedPoint struct {
	Text  string `json:"text"`
	Quote string `json:"quote,omitempty"`
}

// CompetitorSource identifies which producer built a record.
type CompetitorSource string

const (
	CompetitorSourceAI        CompetitorSource = "ai"
	CompetitorSourceHeuristic CompetitorSource = "heuristic"
)

// CompetitorRecord is the scored result of analyzing one competitor's
// homepage. Records accumulate across enrichment calls by union-by-domain
// merge: the newer record for a domain replaces the older one.
type CompetitorRecord struct {
	Domain     string           `json:"domain"`
	Score      int              `json:"score"` // 0-100
	Categories *CategoryScores  `json:"categories,omitempty"`
	Strengths  []QuotedPoint    `json:"strengths,omitempty"`
	Weaknesses []QuotedPoint    `json:"weaknesses,omitempty"`
	Headline   string           `json:"headline,omitempty"`
	Source     CompetitorSource `json:"source,omitempty"`
	AnalyzedAt time.Time        `json:"analyzed_at"`
}

// CompetitorComparison is the aggregate competitor view attached to a
// complete job. A complete job always carries one, possibly empty or
// timeout-flagged.
type CompetitorComparison struct {
	DetailedScores []CompetitorRecord `json:"detailed_scores"`
	AverageScore   int                `json:"average_score"`
	GapNarrative   string             `json:"gap_narrative,omitempty"`
	TimedOut       bool               `json:"timed_out,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// CompetitorProgressStatus is the transient per-competitor batch status.
type CompetitorProgressStatus string

const (
	CompetitorProgressPending   CompetitorProgressStatus = "pending"
	CompetitorProgressAnalyzing CompetitorProgressStatus = "analyzing"
	CompetitorProgressCompleted CompetitorProgressStatus = "completed"
	CompetitorProgressError     CompetitorProgressStatus = "error"
)

// CompetitorProgressEntry is the live per-competitor status shown to
// polling clients while an enrichment batch is in flight.
type CompetitorProgressEntry struct {
	Domain string                   `json:"domain"`
	Status CompetitorProgressStatus `json:"status"`
	Score  int                      `json:"score,omitempty"`
	// EarlyFindings carries up to two strength/weakness texts surfaced
	// before the full record lands.
	EarlyFindings []string `json:"early_findings,omitempty"`
}

// MergeCompetitors unions incoming records into existing by domain
// identity. A newer record replaces the existing record for the same
// domain; all other records are preserved, so the merge is
// idempotent-additive and never destructive. Existing order is kept,
// with genuinely new domains appended in incoming order.
func MergeCompetitors(existing, incoming []CompetitorRecord) []CompetitorRecord {
	merged := make([]CompetitorRecord, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, rec := range merged {
		index[rec.Domain] = i
	}

	for _, rec := range incoming {
		if i, ok := index[rec.Domain]; ok {
			merged[i] = rec
			continue
		}
		index[rec.Domain] = len(merged)
		merged = append(merged, rec)
	}

	return merged
}

// BuildComparison computes the aggregate fields over the full merged record
// set. Aggregates are always recomputed from the whole set, not just the
// newest batch.
func BuildComparison(records []CompetitorRecord, targetScore int, timedOut bool) *CompetitorComparison {
	if records == nil {
		// Serialize as an empty list, never null.
		records = []CompetitorRecord{}
	}
	comparison := &CompetitorComparison{
		DetailedScores: records,
		TimedOut:       timedOut,
		UpdatedAt:      time.Now().UTC(),
	}

	if len(records) == 0 {
		if timedOut {
			comparison.GapNarrative = "Competitor analysis timed out before any results were collected."
		}
		return comparison
	}

	sorted := make([]CompetitorRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	total := 0
	for _, rec := range records {
		total += rec.Score
	}
	comparison.AverageScore = total / len(records)

	gap := targetScore - comparison.AverageScore
	leader := sorted[0]
	switch {
	case gap >= 10:
		comparison.GapNarrative = "Your messaging scores ahead of the analyzed competitors."
	case gap <= -10:
		comparison.GapNarrative = "Competitors such as " + leader.Domain + " are out-messaging you on specificity and proof."
	default:
		comparison.GapNarrative = "Your messaging is roughly level with the analyzed competitors."
	}
	if timedOut {
		comparison.GapNarrative += " Some competitors could not be analyzed before the time limit."
	}

	return comparison
}
