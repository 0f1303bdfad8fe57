// Package discovery is the fallback competitor finder, used only when
// scoring suggests zero competitor domains.
package discovery

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
	"github.com/ternarybob/copyscope/internal/services/llm"
)

const discoveryPrompt = `Based on this company's homepage content, list up to five direct competitor domains (bare domains like "example.com", no marketplaces or aggregators). Respond with a JSON array of strings only.

Homepage of %TARGET%:

`

// maxHomepageChars bounds the homepage excerpt in the discovery prompt.
const maxHomepageChars = 4000

// Service makes one bounded discovery call. Any call or parse failure
// yields an empty list; discovery never fails the job.
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates a new discovery service.
func NewService(llmService interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{
		llm:    llmService,
		logger: logger,
	}
}

// Discover asks the reasoning service for competitor domains using the
// crawled homepage content.
func (s *Service) Discover(ctx context.Context, crawl *models.CrawlResult, targetURL string) []string {
	if crawl == nil || len(crawl.Pages) == 0 {
		return nil
	}

	homepage := crawl.Pages[0].Content
	if len(homepage) > maxHomepageChars {
		homepage = homepage[:maxHomepageChars]
	}

	prompt := strings.Replace(discoveryPrompt, "%TARGET%", targetURL, 1) + homepage

	response, err := s.llm.Complete(ctx, "", prompt)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", targetURL).Msg("Competitor discovery call failed")
		return nil
	}

	var domains []string
	if err := json.Unmarshal([]byte(llm.ExtractJSONArray(response)), &domains); err != nil {
		s.logger.Warn().Err(err).Str("url", targetURL).Msg("Competitor discovery returned unparseable response")
		return nil
	}

	var normalized []string
	seen := map[string]bool{}
	for _, domain := range domains {
		clean := common.NormalizeDomain(domain)
		if clean == "" || seen[clean] {
			continue
		}
		seen[clean] = true
		normalized = append(normalized, clean)
	}

	s.logger.Info().
		Str("url", targetURL).
		Int("count", len(normalized)).
		Msg("Discovery fallback suggested competitors")

	return normalized
}

var _ interfaces.DiscoveryService = (*Service)(nil)
