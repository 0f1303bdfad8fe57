package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/models"
)

// Enrich accepts user-added competitor domains and social URLs for an
// existing job, hands the batch to the background enrichment path, and
// returns immediately with the analyzing sub-status. Resubmissions are
// deduplicated; the batch is capped, topping up from AI-suggested
// candidates when the user supplied fewer.
//
// Enrichment may race a still-running main pipeline; it only ever merges
// into the competitor set, so out-of-order completion cannot clobber
// pipeline results.
func (s *Service) Enrich(ctx context.Context, id string, domains, socialURLs []string, email string) (*models.Job, error) {
	job, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusFailed {
		return nil, fmt.Errorf("cannot enrich a failed job")
	}

	ownDomain := common.NormalizeDomain(job.URL)

	// Dedup against everything previously submitted.
	known := map[string]bool{ownDomain: true}
	for _, prior := range job.Enrichment.PendingCompetitors {
		known[prior] = true
	}

	var newDomains []string
	for _, raw := range domains {
		domain := common.NormalizeDomain(raw)
		if domain == "" || known[domain] {
			continue
		}
		known[domain] = true
		newDomains = append(newDomains, domain)
	}

	batchDomains := s.enrichmentBatch(job, newDomains)

	updated, err := s.store.Patch(ctx, id, func(j *models.Job) error {
		j.Enrichment.Status = models.EnrichmentStatusAnalyzing
		j.Enrichment.Progress = 10
		j.Enrichment.Message = "Analyzing competitors"
		j.Enrichment.PendingCompetitors = appendUnique(j.Enrichment.PendingCompetitors, newDomains)
		j.Enrichment.SocialURLs = appendUnique(j.Enrichment.SocialURLs, cleanSocialURLs(socialURLs))
		if email = strings.TrimSpace(email); email != "" {
			j.Email = email
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	common.SafeGo(s.logger, "enrichment:"+id, func() {
		s.runEnrichment(id, batchDomains)
	})

	s.logger.Info().
		Str("job_id", id).
		Int("new_domains", len(newDomains)).
		Int("batch_size", len(batchDomains)).
		Msg("Enrichment scheduled")

	return updated, nil
}

// enrichmentBatch builds the batch list: the user's new domains first,
// topped up from AI-suggested candidates that have not been analyzed yet,
// capped at the configured batch size.
func (s *Service) enrichmentBatch(job *models.Job, newDomains []string) []string {
	limit := s.config.Pipeline.CompetitorCap

	batch := make([]string, 0, limit)
	inBatch := map[string]bool{}
	for _, domain := range newDomains {
		if len(batch) >= limit {
			break
		}
		inBatch[domain] = true
		batch = append(batch, domain)
	}

	if len(batch) >= limit || job.Results == nil {
		return batch
	}

	analyzed := map[string]bool{}
	if job.Results.Comparison != nil {
		for _, record := range job.Results.Comparison.DetailedScores {
			analyzed[record.Domain] = true
		}
	}

	for _, candidate := range job.Results.SuggestedCompetitors {
		if len(batch) >= limit {
			break
		}
		if inBatch[candidate.Domain] || analyzed[candidate.Domain] {
			continue
		}
		inBatch[candidate.Domain] = true
		batch = append(batch, candidate.Domain)
	}

	return batch
}

// runEnrichment executes the enrichment batch in the background. Unlike the
// inline path there is no outer timeout; after every group the live
// per-competitor progress list is written so polling clients see
// incremental movement.
func (s *Service) runEnrichment(jobID string, domains []string) {
	ctx := context.Background()

	sink := func(entries []models.CompetitorProgressEntry) {
		completed := 0
		for _, entry := range entries {
			if entry.Status == models.CompetitorProgressCompleted || entry.Status == models.CompetitorProgressError {
				completed++
			}
		}
		percent := 10
		if len(entries) > 0 {
			percent += completed * 85 / len(entries)
		}

		_, err := s.store.Patch(ctx, jobID, func(j *models.Job) error {
			j.Enrichment.CompetitorProgress = entries
			if percent > j.Enrichment.Progress {
				j.Enrichment.Progress = percent
			}
			return nil
		})
		if err != nil {
			s.logger.Debug().Err(err).Str("job_id", jobID).Msg("Enrichment progress patch dropped")
		}
	}

	records := s.batch.RunEnrichment(ctx, domains, sink)

	_, err := s.store.Patch(ctx, jobID, func(j *models.Job) error {
		if len(records) > 0 {
			mergeRecords(j, records)
		}

		j.Enrichment.Status = models.EnrichmentStatusComplete
		j.Enrichment.Progress = 100
		j.Enrichment.CompetitorProgress = nil
		if len(records) == 0 {
			j.Enrichment.Message = "No new competitors could be analyzed"
		} else {
			j.Enrichment.Message = fmt.Sprintf("Analyzed %d competitors", len(records))
		}
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to finalize enrichment")
		s.failEnrichment(jobID)
		return
	}

	s.logger.Info().
		Str("job_id", jobID).
		Int("records", len(records)).
		Msg("Enrichment complete")
}

// mergeRecords unions new competitor records into the job and recomputes
// aggregates over the full merged set. Existing records for other domains
// are never touched.
func mergeRecords(j *models.Job, records []models.CompetitorRecord) {
	if j.Results == nil {
		// Enrichment finished before the main pipeline attached results;
		// hold the records in a comparison-only shell the pipeline's
		// merge-by-domain will preserve.
		j.Results = &models.AnalysisResult{}
	}

	var existing []models.CompetitorRecord
	timedOut := false
	if j.Results.Comparison != nil {
		existing = j.Results.Comparison.DetailedScores
		timedOut = j.Results.Comparison.TimedOut
	}

	merged := models.MergeCompetitors(existing, records)
	j.Results.Comparison = models.BuildComparison(merged, j.Results.OverallScore, timedOut)
}

// failEnrichment marks the enrichment sub-machine failed. The main job
// status is untouched; enrichment failure never regresses a complete job.
func (s *Service) failEnrichment(jobID string) {
	_, err := s.store.Patch(context.Background(), jobID, func(j *models.Job) error {
		j.Enrichment.Status = models.EnrichmentStatusFailed
		j.Enrichment.Message = "Competitor analysis failed. Please try again."
		j.Enrichment.CompetitorProgress = nil
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to mark enrichment failed")
	}
}

// cleanSocialURLs keeps only plausibly valid absolute URLs.
func cleanSocialURLs(raw []string) []string {
	var cleaned []string
	for _, candidate := range raw {
		normalized, err := common.NormalizeTargetURL(candidate)
		if err != nil {
			continue
		}
		cleaned = append(cleaned, normalized)
	}
	return cleaned
}

func appendUnique(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, value := range existing {
		seen[value] = true
	}
	for _, value := range incoming {
		if !seen[value] {
			seen[value] = true
			existing = append(existing, value)
		}
	}
	return existing
}
