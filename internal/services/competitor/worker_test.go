package competitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
)

type stubCrawler struct {
	pages []models.PageRecord
	err   error
	delay time.Duration
}

func (s *stubCrawler) Crawl(ctx context.Context, targetURL string, maxPages int, onProgress interfaces.CrawlProgressFunc) (*models.CrawlResult, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.CrawlResult{Pages: s.pages}, nil
}

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	return s.response, s.err
}
func (s *stubLLM) HealthCheck(ctx context.Context) error { return nil }
func (s *stubLLM) Close() error                          { return nil }

func competitorPage() []models.PageRecord {
	return []models.PageRecord{{
		URL:      "https://rival.com",
		Path:     "/",
		Headline: "Plumbing done right",
		Content:  "ISO certified. Serving 1,200 customers since 1995.",
	}}
}

func TestAnalyze(t *testing.T) {
	logger := arbor.NewLogger()

	t.Run("ai path", func(t *testing.T) {
		llmStub := &stubLLM{response: `{"categories": {"clarity": 8, "specificity": 7, "proof": 8, "differentiation": 6}, "score": 74, "strengths": [{"text": "Specific proof", "quote": "ISO certified"}], "weaknesses": []}`}
		analyzer := NewAnalyzer(&stubCrawler{pages: competitorPage()}, llmStub, logger, time.Second)

		record, err := analyzer.Analyze(context.Background(), "https://www.Rival.com/")
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}

		if record.Domain != "rival.com" {
			t.Errorf("Domain = %s, want normalized rival.com", record.Domain)
		}
		if record.Source != models.CompetitorSourceAI {
			t.Errorf("Source = %s, want ai", record.Source)
		}
		if record.Score != 74 {
			t.Errorf("Score = %d, want 74", record.Score)
		}
		if record.Categories == nil {
			t.Error("Categories missing on AI record")
		}
		// 74 >= threshold, so zero weaknesses is acceptable.
		if len(record.Weaknesses) != 0 {
			t.Errorf("unexpected synthesized weaknesses: %+v", record.Weaknesses)
		}
	})

	t.Run("reasoning failure falls back to heuristic", func(t *testing.T) {
		llmStub := &stubLLM{err: errors.New("overloaded")}
		analyzer := NewAnalyzer(&stubCrawler{pages: competitorPage()}, llmStub, logger, time.Second)

		record, err := analyzer.Analyze(context.Background(), "rival.com")
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if record.Source != models.CompetitorSourceHeuristic {
			t.Errorf("Source = %s, want heuristic", record.Source)
		}
	})

	t.Run("unparseable response falls back to heuristic", func(t *testing.T) {
		llmStub := &stubLLM{response: "sorry, I cannot score this"}
		analyzer := NewAnalyzer(&stubCrawler{pages: competitorPage()}, llmStub, logger, time.Second)

		record, err := analyzer.Analyze(context.Background(), "rival.com")
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if record.Source != models.CompetitorSourceHeuristic {
			t.Errorf("Source = %s, want heuristic", record.Source)
		}
	})

	t.Run("slow crawl times out", func(t *testing.T) {
		crawler := &stubCrawler{pages: competitorPage(), delay: 300 * time.Millisecond}
		analyzer := NewAnalyzer(crawler, &stubLLM{}, logger, 50*time.Millisecond)

		_, err := analyzer.Analyze(context.Background(), "slow.com")
		if err == nil {
			t.Fatal("expected timeout error")
		}
	})

	t.Run("crawl error propagates", func(t *testing.T) {
		crawler := &stubCrawler{err: errors.New("connection refused")}
		analyzer := NewAnalyzer(crawler, &stubLLM{}, logger, time.Second)

		if _, err := analyzer.Analyze(context.Background(), "down.com"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid domain rejected", func(t *testing.T) {
		analyzer := NewAnalyzer(&stubCrawler{}, &stubLLM{}, logger, time.Second)
		if _, err := analyzer.Analyze(context.Background(), "   "); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("low ai score gets weakness floor", func(t *testing.T) {
		llmStub := &stubLLM{response: `{"categories": {"clarity": 3, "specificity": 3, "proof": 2, "differentiation": 3}, "score": 35, "strengths": [], "weaknesses": []}`}
		analyzer := NewAnalyzer(&stubCrawler{pages: competitorPage()}, llmStub, logger, time.Second)

		record, err := analyzer.Analyze(context.Background(), "rival.com")
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		if len(record.Weaknesses) == 0 {
			t.Error("score below threshold shipped with zero weaknesses")
		}
	})
}
