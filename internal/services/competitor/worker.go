package competitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
	"github.com/ternarybob/copyscope/internal/services/llm"
)

const competitorSystemPrompt = `You are a website messaging analyst. You respond with JSON only.`

const competitorPromptHeader = `Score the messaging of this competitor homepage. Return per-category scores from 0 to 10, an overall score from 0 to 100, and 2-3 strengths plus 2-3 weaknesses. Every strength and weakness must quote verbatim text from the page to support it.

Respond with exactly this JSON shape:
{
  "categories": {"clarity": 0, "specificity": 0, "proof": 0, "differentiation": 0},
  "score": 0,
  "strengths": [{"text": "", "quote": ""}],
  "weaknesses": [{"text": "", "quote": ""}]
}

Homepage of `

// Analyzer crawls and scores one competitor homepage. Failures are
// competitor-scoped: a timed-out crawl yields no record, a failed
// reasoning call degrades to the heuristic scorer.
type Analyzer struct {
	crawler      interfaces.CrawlService
	llm          interfaces.LLMService
	logger       arbor.ILogger
	crawlTimeout time.Duration
}

// NewAnalyzer creates a competitor analyzer.
func NewAnalyzer(crawler interfaces.CrawlService, llmService interfaces.LLMService, logger arbor.ILogger, crawlTimeout time.Duration) *Analyzer {
	if crawlTimeout <= 0 {
		crawlTimeout = 25 * time.Second
	}
	return &Analyzer{
		crawler:      crawler,
		llm:          llmService,
		logger:       logger,
		crawlTimeout: crawlTimeout,
	}
}

type crawlOutcome struct {
	result *models.CrawlResult
	err    error
}

// Analyze normalizes the domain, crawls its homepage against a fixed
// timeout, and scores it with the reasoning service, falling back to the
// heuristic scorer when reasoning fails.
func (a *Analyzer) Analyze(ctx context.Context, domain string) (*models.CompetitorRecord, error) {
	normalized := common.NormalizeDomain(domain)
	if normalized == "" {
		return nil, fmt.Errorf("invalid competitor domain %q", domain)
	}
	homepageURL := common.DomainURL(normalized)

	// Race the crawl against the timeout. The crawl itself is not
	// cancelled; a late result is simply ignored.
	outcomeCh := make(chan crawlOutcome, 1)
	go func() {
		result, err := a.crawler.Crawl(ctx, homepageURL, 1, nil)
		outcomeCh <- crawlOutcome{result: result, err: err}
	}()

	var crawl *models.CrawlResult
	select {
	case outcome := <-outcomeCh:
		if outcome.err != nil {
			return nil, fmt.Errorf("competitor crawl failed for %s: %w", normalized, outcome.err)
		}
		crawl = outcome.result
	case <-time.After(a.crawlTimeout):
		return nil, fmt.Errorf("competitor crawl timed out for %s after %s", normalized, a.crawlTimeout)
	}

	if crawl == nil || len(crawl.Pages) == 0 {
		return nil, fmt.Errorf("competitor crawl returned no pages for %s", normalized)
	}
	page := crawl.Pages[0]

	record, err := a.scoreWithLLM(ctx, normalized, page)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str("domain", normalized).
			Msg("Reasoning call failed, using heuristic scorer")
		record = scoreHeuristically(normalized, page.Headline, page.Content)
	}

	a.logger.Info().
		Str("domain", normalized).
		Int("score", record.Score).
		Str("source", string(record.Source)).
		Msg("Competitor analyzed")

	return record, nil
}

// competitorResponse is the wire shape for the reasoning call.
type competitorResponse struct {
	Categories models.CategoryScores `json:"categories"`
	Score      int                   `json:"score"`
	Strengths  []models.QuotedPoint  `json:"strengths"`
	Weaknesses []models.QuotedPoint  `json:"weaknesses"`
}

func (a *Analyzer) scoreWithLLM(ctx context.Context, domain string, page models.PageRecord) (*models.CompetitorRecord, error) {
	var prompt strings.Builder
	prompt.WriteString(competitorPromptHeader)
	prompt.WriteString(domain)
	prompt.WriteString(":\n\n")
	if page.Headline != "" {
		prompt.WriteString("Headline: " + page.Headline + "\n")
	}
	prompt.WriteString(page.Content)

	response, err := a.llm.Complete(ctx, competitorSystemPrompt, prompt.String())
	if err != nil {
		return nil, err
	}

	var parsed competitorResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSONObject(response)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse competitor JSON: %w", err)
	}

	score := parsed.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	weaknesses := FilterContradictions(parsed.Strengths, parsed.Weaknesses)
	weaknesses = ApplyWeaknessFloor(score, weaknesses)

	categories := parsed.Categories
	return &models.CompetitorRecord{
		Domain:     domain,
		Score:      score,
		Categories: &categories,
		Strengths:  parsed.Strengths,
		Weaknesses: weaknesses,
		Headline:   page.Headline,
		Source:     models.CompetitorSourceAI,
		AnalyzedAt: time.Now().UTC(),
	}, nil
}

var _ interfaces.CompetitorAnalyzer = (*Analyzer)(nil)
