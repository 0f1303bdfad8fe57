package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/models"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string
}

func (f *fakeLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeLLM) Close() error                          { return nil }

func crawlFixture(pageCount int) *models.CrawlResult {
	crawl := &models.CrawlResult{}
	for i := 0; i < pageCount; i++ {
		crawl.Pages = append(crawl.Pages, models.PageRecord{
			URL:     "https://example.com/p",
			Path:    "/p",
			Title:   "Page",
			Content: "We fix pipes fast.",
		})
	}
	return crawl
}

const goodResponse = `Here is my assessment:
` + "```json" + `
{
  "categories": {"clarity": 7, "specificity": 4, "proof": 3, "differentiation": 6},
  "overall_score": 52,
  "issues": [
    {"title": "Low severity nit", "severity": "low"},
    {"title": "No proof anywhere", "severity": "high", "findings": [{"phrase": "best in town", "rewrite": "rated 4.9 by 212 customers"}]},
    {"title": "Vague services list", "severity": "medium"}
  ],
  "voice_summary": "Friendly but generic trade voice.",
  "competitors": [
    {"domain": "https://www.rival.com", "confidence": "HIGH"},
    {"domain": "rival.com", "confidence": "high"},
    {"domain": "other.io", "confidence": "weird"}
  ]
}
` + "```"

func TestScore(t *testing.T) {
	logger := arbor.NewLogger()

	t.Run("parses fenced response", func(t *testing.T) {
		llmStub := &fakeLLM{response: goodResponse}
		service := NewService(llmStub, logger)

		result, err := service.Score(context.Background(), crawlFixture(2), "https://example.com")
		if err != nil {
			t.Fatalf("Score: %v", err)
		}

		if result.OverallScore != 52 {
			t.Errorf("OverallScore = %d, want 52", result.OverallScore)
		}
		if result.Categories.Clarity != 7 || result.Categories.Proof != 3 {
			t.Errorf("categories wrong: %+v", result.Categories)
		}
		if result.VoiceSummary == "" {
			t.Error("voice summary missing")
		}

		// Issues ranked most severe first.
		if len(result.Issues) != 3 || result.Issues[0].Severity != "high" || result.Issues[2].Severity != "low" {
			t.Errorf("issue ranking wrong: %+v", result.Issues)
		}

		// Competitor domains normalized and deduplicated; unknown
		// confidence defaults to medium.
		if len(result.SuggestedCompetitors) != 2 {
			t.Fatalf("competitors = %d, want 2", len(result.SuggestedCompetitors))
		}
		if result.SuggestedCompetitors[0].Domain != "rival.com" {
			t.Errorf("domain not normalized: %s", result.SuggestedCompetitors[0].Domain)
		}
		if result.SuggestedCompetitors[1].Confidence != models.ConfidenceMedium {
			t.Errorf("unknown confidence = %s, want medium", result.SuggestedCompetitors[1].Confidence)
		}
	})

	t.Run("derives overall score when model omits it", func(t *testing.T) {
		llmStub := &fakeLLM{response: `{"categories": {"clarity": 8, "specificity": 8, "proof": 8, "differentiation": 8}, "issues": []}`}
		service := NewService(llmStub, logger)

		result, err := service.Score(context.Background(), crawlFixture(1), "https://example.com")
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		if result.OverallScore != 80 {
			t.Errorf("derived OverallScore = %d, want 80", result.OverallScore)
		}
	})

	t.Run("clamps out-of-range category scores", func(t *testing.T) {
		llmStub := &fakeLLM{response: `{"categories": {"clarity": 14, "specificity": -3, "proof": 5, "differentiation": 5}, "overall_score": 50}`}
		service := NewService(llmStub, logger)

		result, err := service.Score(context.Background(), crawlFixture(1), "https://example.com")
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		if result.Categories.Clarity != 10 || result.Categories.Specificity != 0 {
			t.Errorf("clamping wrong: %+v", result.Categories)
		}
	})

	t.Run("prompt bounded by page cap", func(t *testing.T) {
		llmStub := &fakeLLM{response: goodResponse}
		service := NewService(llmStub, logger)

		_, err := service.Score(context.Background(), crawlFixture(20), "https://example.com")
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		if got := strings.Count(llmStub.prompt, "--- PAGE "); got != maxPromptPages {
			t.Errorf("prompt pages = %d, want %d", got, maxPromptPages)
		}
	})

	t.Run("empty crawl rejected", func(t *testing.T) {
		service := NewService(&fakeLLM{}, logger)
		if _, err := service.Score(context.Background(), &models.CrawlResult{}, "https://example.com"); err == nil {
			t.Error("expected error for empty crawl")
		}
	})

	t.Run("llm error propagates", func(t *testing.T) {
		service := NewService(&fakeLLM{err: errors.New("rate limited")}, logger)
		if _, err := service.Score(context.Background(), crawlFixture(1), "https://example.com"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("garbage response errors", func(t *testing.T) {
		service := NewService(&fakeLLM{response: "I can't help with that."}, logger)
		if _, err := service.Score(context.Background(), crawlFixture(1), "https://example.com"); err == nil {
			t.Error("expected parse error")
		}
	})
}
