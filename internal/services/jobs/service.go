// Package jobs owns the Job state machine. All Job mutation and transition
// legality flows through this service; handlers and background pipelines
// never write to the store directly.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
	"github.com/ternarybob/copyscope/internal/services/competitor"
)

// errNotPending signals that another poll already claimed the pending ->
// crawling transition.
var errNotPending = errors.New("job is no longer pending")

// Service drives the analysis pipeline across stateless request
// invocations. The store's patch is a non-atomic read-modify-write:
// concurrent patches from different processes can drop each other's fields.
// Patches here are frequent and largely idempotent, so this is accepted as
// a bounded risk; the per-process serialization in the store narrows it.
type Service struct {
	store     interfaces.JobStore
	crawler   interfaces.CrawlService
	scorer    interfaces.ScoringService
	discovery interfaces.DiscoveryService
	batch     *competitor.Scheduler
	logger    arbor.ILogger
	config    *common.Config
}

// NewService creates the jobs service.
func NewService(
	store interfaces.JobStore,
	crawler interfaces.CrawlService,
	scorer interfaces.ScoringService,
	discovery interfaces.DiscoveryService,
	batch *competitor.Scheduler,
	config *common.Config,
	logger arbor.ILogger,
) *Service {
	return &Service{
		store:     store,
		crawler:   crawler,
		scorer:    scorer,
		discovery: discovery,
		batch:     batch,
		logger:    logger,
		config:    config,
	}
}

// CreateJob validates and normalizes the target URL and persists a new
// pending job. The pipeline never runs synchronously here; the first
// status poll triggers it.
func (s *Service) CreateJob(ctx context.Context, rawURL, email string) (*models.Job, error) {
	targetURL, err := common.NormalizeTargetURL(rawURL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:        common.NewJobID(),
		URL:       targetURL,
		Email:     strings.TrimSpace(email),
		Status:    models.JobStatusPending,
		Message:   "Waiting to start",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Set(ctx, job.ID, job, s.config.Retention.UnpaidTTL()); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("url", targetURL).
		Msg("Job created")

	return job, nil
}

// GetStatus returns the current job snapshot. The first poll that observes
// a pending job flips it to crawling synchronously and schedules the
// pipeline to run past this response. The claim is a store patch
// serialized per job within this process; it is a best-effort guard, not a
// distributed lock.
func (s *Service) GetStatus(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, interfaces.ErrJobNotFound
	}

	if job.Status != models.JobStatusPending {
		return job, nil
	}

	claimed, err := s.store.Patch(ctx, id, func(j *models.Job) error {
		if j.Status != models.JobStatusPending {
			return errNotPending
		}
		j.Status = models.JobStatusCrawling
		j.Progress = 5
		j.Message = "Crawling your site"
		return nil
	})
	if err != nil {
		if errors.Is(err, errNotPending) {
			// Another poll won the claim; return the fresh snapshot.
			return s.snapshot(ctx, id)
		}
		return nil, fmt.Errorf("failed to claim job for processing: %w", err)
	}

	s.logger.Info().Str("job_id", id).Msg("First poll claimed job, scheduling pipeline")
	common.SafeGo(s.logger, "pipeline:"+id, func() {
		s.runPipeline(id)
	})

	return claimed, nil
}

func (s *Service) snapshot(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, interfaces.ErrJobNotFound
	}
	return job, nil
}

// MarkPaid records an external payment confirmation and extends retention.
// Repeat confirmations are idempotent; paid never reverts.
func (s *Service) MarkPaid(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.store.Patch(ctx, id, func(j *models.Job) error {
		j.Paid = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Re-set to extend the TTL to the post-payment window.
	if err := s.store.Set(ctx, id, job, s.config.Retention.PaidTTL()); err != nil {
		return nil, fmt.Errorf("failed to extend job retention: %w", err)
	}

	s.logger.Info().Str("job_id", id).Msg("Job marked paid, retention extended")
	return job, nil
}

// setStatus applies a legal forward transition with its coarse progress and
// message. Progress never moves backward.
func (s *Service) setStatus(ctx context.Context, id string, to models.JobStatus, progress int, message string) error {
	_, err := s.store.Patch(ctx, id, func(j *models.Job) error {
		if !models.ValidTransition(j.Status, to) {
			return fmt.Errorf("illegal transition %s -> %s for job %s", j.Status, to, id)
		}
		j.Status = to
		if progress > j.Progress {
			j.Progress = progress
		}
		j.Message = message
		return nil
	})
	return err
}

// failJob moves a job into the absorbing failed state with a user-facing
// message derived from the error. Terminal jobs are left untouched.
func (s *Service) failJob(id string, cause error) {
	ctx := context.Background()
	_, err := s.store.Patch(ctx, id, func(j *models.Job) error {
		if j.Status.IsTerminal() {
			return fmt.Errorf("job %s already terminal (%s)", id, j.Status)
		}
		j.Status = models.JobStatusFailed
		j.Message = deriveFailureMessage(cause)
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", id).Msg("Failed to mark job failed")
		return
	}

	s.logger.Error().
		Err(cause).
		Str("job_id", id).
		Msg("Job failed")
}

// deriveFailureMessage turns an internal pipeline error into a short
// user-facing explanation. Internal detail stays in the logs.
func deriveFailureMessage(err error) string {
	if err == nil {
		return "Analysis failed for an unknown reason."
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no pages"), strings.Contains(msg, "failed to fetch"):
		return "We couldn't read any pages from your site. Check that the URL is reachable and try again."
	case strings.Contains(msg, "scoring"):
		return "We crawled your site but couldn't complete the messaging analysis. Please try again."
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "The analysis took too long and was stopped. Please try again."
	default:
		return "Something went wrong during the analysis. Please try again."
	}
}
