package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/models"
)

// Coarse per-phase progress marks. UX signal only, never a scheduling
// input.
const (
	progressCrawlStart  = 5
	progressCrawlDone   = 40
	progressScored      = 60
	progressDiscovery   = 65
	progressCompetitors = 70
	progressComplete    = 100
)

// runPipeline executes the full analysis pipeline for one job. It runs as
// a background continuation after the first status poll; every step is
// persisted so concurrent polls observe monotonic progress.
func (s *Service) runPipeline(jobID string) {
	ctx := context.Background()

	if err := s.executePipeline(ctx, jobID); err != nil {
		s.failJob(jobID, err)
	}
}

func (s *Service) executePipeline(ctx context.Context, jobID string) error {
	job, err := s.snapshot(ctx, jobID)
	if err != nil {
		return err
	}
	targetURL := job.URL

	crawl, err := s.crawlPhase(ctx, jobID, targetURL)
	if err != nil {
		return err
	}

	if err := s.setStatus(ctx, jobID, models.JobStatusAnalyzing, progressCrawlDone, "Analyzing your messaging"); err != nil {
		return err
	}

	result, err := s.scorer.Score(ctx, crawl, targetURL)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}
	s.patchProgress(ctx, jobID, progressScored, "Comparing against competitors")

	domains := s.competitorCandidates(ctx, jobID, job, result, crawl, targetURL)

	s.patchProgress(ctx, jobID, progressCompetitors, "Analyzing competitors")
	batch := s.batch.RunInline(ctx, domains)
	preview := buildPreview(result, len(crawl.Pages))

	now := time.Now().UTC()
	_, err = s.store.Patch(ctx, jobID, func(j *models.Job) error {
		if !models.ValidTransition(j.Status, models.JobStatusComplete) {
			return fmt.Errorf("illegal transition %s -> %s for job %s", j.Status, models.JobStatusComplete, jobID)
		}
		// An enrichment batch may have landed records while the pipeline
		// was still running; union them with the inline batch instead of
		// replacing them. Completion always carries a comparison, even
		// when empty or timeout-flagged.
		records := batch.Records
		timedOut := batch.TimedOut
		if j.Results != nil && j.Results.Comparison != nil {
			records = models.MergeCompetitors(j.Results.Comparison.DetailedScores, batch.Records)
			timedOut = timedOut || j.Results.Comparison.TimedOut
		}
		result.Comparison = models.BuildComparison(records, result.OverallScore, timedOut)
		j.Status = models.JobStatusComplete
		j.Progress = progressComplete
		j.Message = "Analysis complete"
		j.Results = result
		j.Preview = preview
		j.CompletedAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("job_id", jobID).
		Int("pages", len(crawl.Pages)).
		Int("competitors", len(batch.Records)).
		Bool("batch_timed_out", batch.TimedOut).
		Msg("Pipeline complete")

	return nil
}

// crawlPhase runs the crawl with coalesced fire-and-forget progress
// patches. Zero pages is a hard failure.
func (s *Service) crawlPhase(ctx context.Context, jobID, targetURL string) (*models.CrawlResult, error) {
	interval := s.config.Pipeline.ProgressPatchInterval()
	maxPages := s.config.Crawler.MaxPages

	var progressMu sync.Mutex
	var lastPatch time.Time

	onProgress := func(crawled, found int, currentURL string) {
		progressMu.Lock()
		if time.Since(lastPatch) < interval {
			progressMu.Unlock()
			return
		}
		lastPatch = time.Now()
		progressMu.Unlock()

		// Best-effort: the crawl must never block on a progress write.
		common.SafeGo(s.logger, "crawl-progress:"+jobID, func() {
			percent := progressCrawlStart
			if maxPages > 0 {
				percent += crawled * (progressCrawlDone - progressCrawlStart - 5) / maxPages
			}
			_, err := s.store.Patch(context.Background(), jobID, func(j *models.Job) error {
				j.PagesCrawled = crawled
				j.PagesFound = found
				j.CurrentPath = common.PathOf(currentURL)
				if percent > j.Progress {
					j.Progress = percent
				}
				return nil
			})
			if err != nil {
				s.logger.Debug().Err(err).Str("job_id", jobID).Msg("Crawl progress patch dropped")
			}
		})
	}

	crawl, err := s.crawler.Crawl(ctx, targetURL, maxPages, onProgress)
	if err != nil {
		return nil, fmt.Errorf("crawl failed: %w", err)
	}
	if len(crawl.Pages) == 0 {
		return nil, fmt.Errorf("crawl returned no pages for %s", targetURL)
	}

	// Final counter sync; the coalesced callback may have skipped the
	// last pages.
	paths := make([]string, 0, len(crawl.Pages))
	for _, page := range crawl.Pages {
		paths = append(paths, page.Path)
	}
	_, _ = s.store.Patch(ctx, jobID, func(j *models.Job) error {
		j.PagesCrawled = len(crawl.Pages)
		j.CrawledPaths = paths
		j.CurrentPath = ""
		return nil
	})

	return crawl, nil
}

// competitorCandidates resolves the batch list: AI suggestions sorted by
// confidence, highest first, excluding the target's own domain, truncated
// to the cap. The discovery fallback runs only when scoring suggested
// nothing.
func (s *Service) competitorCandidates(ctx context.Context, jobID string, job *models.Job, result *models.AnalysisResult, crawl *models.CrawlResult, targetURL string) []string {
	ownDomain := common.NormalizeDomain(targetURL)

	suggested := make([]models.SuggestedCompetitor, 0, len(result.SuggestedCompetitors))
	for _, candidate := range result.SuggestedCompetitors {
		if candidate.Domain != ownDomain {
			suggested = append(suggested, candidate)
		}
	}
	sort.SliceStable(suggested, func(i, j int) bool {
		return suggested[i].Confidence.Weight() > suggested[j].Confidence.Weight()
	})

	var domains []string
	for _, candidate := range suggested {
		domains = append(domains, candidate.Domain)
	}

	if len(domains) == 0 {
		s.patchProgress(ctx, jobID, progressDiscovery, "Searching for competitors")
		for _, domain := range s.discovery.Discover(ctx, crawl, targetURL) {
			if domain != ownDomain {
				domains = append(domains, domain)
			}
		}
	}

	limit := s.config.Pipeline.CompetitorCap
	if len(domains) > limit {
		domains = domains[:limit]
	}
	return domains
}

// patchProgress bumps progress and message without a status transition.
// Failures are logged and ignored; progress is a UX signal.
func (s *Service) patchProgress(ctx context.Context, jobID string, progress int, message string) {
	_, err := s.store.Patch(ctx, jobID, func(j *models.Job) error {
		if progress > j.Progress {
			j.Progress = progress
		}
		j.Message = message
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("job_id", jobID).Msg("Progress patch dropped")
	}
}

// buildPreview derives the unpaid teaser from the full results.
func buildPreview(result *models.AnalysisResult, pageCount int) *models.PreviewSummary {
	preview := &models.PreviewSummary{
		OverallScore: result.OverallScore,
		PageCount:    pageCount,
	}
	for i, issue := range result.Issues {
		if i >= 3 {
			break
		}
		preview.TopIssues = append(preview.TopIssues, issue.Title)
	}
	return preview
}
