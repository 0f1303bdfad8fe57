package interfaces

import (
	"context"

	"github.com/ternarybob/copyscope/internal/models"
)

// CrawlProgressFunc receives live crawl counters. Implementations must not
// block on further I/O; the orchestrator's progress patch behind it is
// fire-and-forget.
type CrawlProgressFunc func(crawled, found int, currentURL string)

// CrawlService crawls a site up to a page budget and returns page records.
type CrawlService interface {
	Crawl(ctx context.Context, targetURL string, maxPages int, onProgress CrawlProgressFunc) (*models.CrawlResult, error)
}

// ScoringService scores a crawl result into category scores, ranked issues,
// a voice summary, and suggested competitor domains.
type ScoringService interface {
	Score(ctx context.Context, crawl *models.CrawlResult, targetURL string) (*models.AnalysisResult, error)
}

// DiscoveryService is the fallback competitor finder, invoked only when
// scoring suggests zero competitors. It never fails the job: any call or
// parse failure yields an empty list.
type DiscoveryService interface {
	Discover(ctx context.Context, crawl *models.CrawlResult, targetURL string) []string
}

// CompetitorAnalyzer crawls and scores one competitor homepage. A failed or
// timed-out analysis returns (nil, error); the error is competitor-scoped
// and never propagates to the job.
type CompetitorAnalyzer interface {
	Analyze(ctx context.Context, domain string) (*models.CompetitorRecord, error)
}

// LLMService is the reasoning-service boundary. Complete sends one
// system+user prompt and returns the raw text response.
type LLMService interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	HealthCheck(ctx context.Context) error
	Close() error
}
