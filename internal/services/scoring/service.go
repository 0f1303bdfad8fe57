package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
	"github.com/ternarybob/copyscope/internal/services/llm"
)

// maxPromptPages bounds how many crawled pages feed one scoring request.
const maxPromptPages = 8

// Service scores a crawl result through the reasoning service.
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates a new scoring service.
func NewService(llmService interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{
		llm:    llmService,
		logger: logger,
	}
}

// scoreResponse is the wire shape the model is asked to produce.
type scoreResponse struct {
	Categories   models.CategoryScores `json:"categories"`
	OverallScore int                   `json:"overall_score"`
	Issues       []models.Issue        `json:"issues"`
	VoiceSummary string                `json:"voice_summary"`
	Competitors  []struct {
		Domain     string `json:"domain"`
		Confidence string `json:"confidence"`
	} `json:"competitors"`
}

// Score analyzes the crawled pages and returns category scores, ranked
// issues with findings, a voice summary, and suggested competitors.
func (s *Service) Score(ctx context.Context, crawl *models.CrawlResult, targetURL string) (*models.AnalysisResult, error) {
	if crawl == nil || len(crawl.Pages) == 0 {
		return nil, fmt.Errorf("cannot score an empty crawl result")
	}

	prompt := buildScoringPrompt(crawl, targetURL)

	response, err := s.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("scoring call failed: %w", err)
	}

	result, err := s.parseResponse(response)
	if err != nil {
		return nil, fmt.Errorf("scoring response unusable: %w", err)
	}

	s.logger.Info().
		Str("url", targetURL).
		Int("overall_score", result.OverallScore).
		Int("issues", len(result.Issues)).
		Int("suggested_competitors", len(result.SuggestedCompetitors)).
		Msg("Site messaging scored")

	return result, nil
}

func buildScoringPrompt(crawl *models.CrawlResult, targetURL string) string {
	var b strings.Builder
	b.WriteString(scoringPromptHeader)
	b.WriteString(targetURL)
	b.WriteString("\n\n")

	pages := crawl.Pages
	if len(pages) > maxPromptPages {
		pages = pages[:maxPromptPages]
	}

	for _, page := range pages {
		b.WriteString("--- PAGE ")
		b.WriteString(page.Path)
		b.WriteString(" ---\n")
		if page.Title != "" {
			b.WriteString("Title: " + page.Title + "\n")
		}
		if page.Headline != "" {
			b.WriteString("Headline: " + page.Headline + "\n")
		}
		b.WriteString(page.Content)
		b.WriteString("\n\n")
	}

	return b.String()
}

func (s *Service) parseResponse(response string) (*models.AnalysisResult, error) {
	payload := llm.ExtractJSONObject(response)

	var parsed scoreResponse
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse scoring JSON: %w", err)
	}

	parsed.Categories.Clarity = clampCategory(parsed.Categories.Clarity)
	parsed.Categories.Specificity = clampCategory(parsed.Categories.Specificity)
	parsed.Categories.Proof = clampCategory(parsed.Categories.Proof)
	parsed.Categories.Differentiation = clampCategory(parsed.Categories.Differentiation)

	overall := parsed.OverallScore
	if overall <= 0 || overall > 100 {
		// Derive from category scores when the model omits or overflows it
		sum := parsed.Categories.Clarity + parsed.Categories.Specificity +
			parsed.Categories.Proof + parsed.Categories.Differentiation
		overall = sum * 100 / 40
	}

	// Rank issues most severe first, keeping model order within a tier
	issues := parsed.Issues
	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank(issues[i].Severity) > severityRank(issues[j].Severity)
	})

	result := &models.AnalysisResult{
		OverallScore: overall,
		Categories:   parsed.Categories,
		Issues:       issues,
		VoiceSummary: strings.TrimSpace(parsed.VoiceSummary),
	}

	seen := map[string]bool{}
	for _, competitor := range parsed.Competitors {
		domain := common.NormalizeDomain(competitor.Domain)
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		result.SuggestedCompetitors = append(result.SuggestedCompetitors, models.SuggestedCompetitor{
			Domain:     domain,
			Confidence: normalizeConfidence(competitor.Confidence),
		})
	}

	return result, nil
}

func clampCategory(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

func severityRank(severity string) int {
	switch strings.ToLower(severity) {
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	default:
		return 0
	}
}

func normalizeConfidence(confidence string) models.Confidence {
	switch strings.ToLower(strings.TrimSpace(confidence)) {
	case "high":
		return models.ConfidenceHigh
	case "low":
		return models.ConfidenceLow
	default:
		return models.ConfidenceMedium
	}
}

var _ interfaces.ScoringService = (*Service)(nil)
