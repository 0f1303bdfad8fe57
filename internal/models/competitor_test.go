package models

import (
	"strings"
	"testing"
	"time"
)

func record(domain string, score int) CompetitorRecord {
	return CompetitorRecord{
		Domain:     domain,
		Score:      score,
		AnalyzedAt: time.Now().UTC(),
	}
}

func TestMergeCompetitors(t *testing.T) {
	t.Run("new domains append in incoming order", func(t *testing.T) {
		existing := []CompetitorRecord{record("alpha.com", 60)}
		incoming := []CompetitorRecord{record("bravo.com", 70), record("charlie.com", 50)}

		merged := MergeCompetitors(existing, incoming)

		if len(merged) != 3 {
			t.Fatalf("len = %d, want 3", len(merged))
		}
		want := []string{"alpha.com", "bravo.com", "charlie.com"}
		for i, domain := range want {
			if merged[i].Domain != domain {
				t.Errorf("merged[%d].Domain = %s, want %s", i, merged[i].Domain, domain)
			}
		}
	})

	t.Run("newer record replaces same domain in place", func(t *testing.T) {
		existing := []CompetitorRecord{record("alpha.com", 60), record("bravo.com", 70)}
		incoming := []CompetitorRecord{record("alpha.com", 85)}

		merged := MergeCompetitors(existing, incoming)

		if len(merged) != 2 {
			t.Fatalf("len = %d, want 2", len(merged))
		}
		if merged[0].Domain != "alpha.com" || merged[0].Score != 85 {
			t.Errorf("merged[0] = %s/%d, want alpha.com/85", merged[0].Domain, merged[0].Score)
		}
		if merged[1].Score != 70 {
			t.Errorf("untouched record changed: score = %d, want 70", merged[1].Score)
		}
	})

	t.Run("merge is idempotent", func(t *testing.T) {
		existing := []CompetitorRecord{record("alpha.com", 60)}
		incoming := []CompetitorRecord{record("bravo.com", 70)}

		once := MergeCompetitors(existing, incoming)
		twice := MergeCompetitors(once, incoming)

		if len(twice) != len(once) {
			t.Errorf("second merge grew the set: %d -> %d", len(once), len(twice))
		}
	})

	t.Run("existing input is not mutated", func(t *testing.T) {
		existing := []CompetitorRecord{record("alpha.com", 60)}
		MergeCompetitors(existing, []CompetitorRecord{record("alpha.com", 90)})

		if existing[0].Score != 60 {
			t.Errorf("existing slice mutated: score = %d, want 60", existing[0].Score)
		}
	})
}

func TestBuildComparison(t *testing.T) {
	t.Run("empty set yields empty comparison", func(t *testing.T) {
		comparison := BuildComparison(nil, 70, false)

		if comparison == nil {
			t.Fatal("comparison is nil")
		}
		if comparison.AverageScore != 0 || len(comparison.DetailedScores) != 0 {
			t.Errorf("unexpected aggregates for empty set: %+v", comparison)
		}
		if comparison.DetailedScores == nil {
			t.Error("detailed scores must serialize as an empty list, not null")
		}
	})

	t.Run("empty timed-out set explains the timeout", func(t *testing.T) {
		comparison := BuildComparison(nil, 70, true)

		if !comparison.TimedOut {
			t.Error("TimedOut not set")
		}
		if !strings.Contains(comparison.GapNarrative, "timed out") {
			t.Errorf("GapNarrative = %q, want timeout explanation", comparison.GapNarrative)
		}
	})

	t.Run("average over full set", func(t *testing.T) {
		records := []CompetitorRecord{record("a.com", 80), record("b.com", 60), record("c.com", 70)}
		comparison := BuildComparison(records, 70, false)

		if comparison.AverageScore != 70 {
			t.Errorf("AverageScore = %d, want 70", comparison.AverageScore)
		}
	})

	t.Run("behind competitors names the leader", func(t *testing.T) {
		records := []CompetitorRecord{record("weak.com", 60), record("leader.com", 90)}
		comparison := BuildComparison(records, 50, false)

		if !strings.Contains(comparison.GapNarrative, "leader.com") {
			t.Errorf("GapNarrative = %q, want mention of leader.com", comparison.GapNarrative)
		}
	})

	t.Run("ahead of competitors", func(t *testing.T) {
		records := []CompetitorRecord{record("a.com", 50)}
		comparison := BuildComparison(records, 80, false)

		if !strings.Contains(comparison.GapNarrative, "ahead") {
			t.Errorf("GapNarrative = %q, want ahead narrative", comparison.GapNarrative)
		}
	})
}
