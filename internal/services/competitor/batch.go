package competitor

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
)

// BatchResult is the outcome of one competitor batch.
type BatchResult struct {
	Records  []models.CompetitorRecord
	TimedOut bool
}

// ProgressSink receives the live per-competitor progress list after every
// state change on the enrichment path. Implementations patch the job; the
// write is best-effort.
type ProgressSink func(entries []models.CompetitorProgressEntry)

// Scheduler fans competitor analyses out across a bounded concurrency
// window. Domains are partitioned into fixed-size groups; groups run
// sequentially while workers within a group run concurrently.
type Scheduler struct {
	analyzer      interfaces.CompetitorAnalyzer
	logger        arbor.ILogger
	groupSize     int
	inlineTimeout time.Duration
}

// NewScheduler creates a batch scheduler.
func NewScheduler(analyzer interfaces.CompetitorAnalyzer, logger arbor.ILogger, groupSize int, inlineTimeout time.Duration) *Scheduler {
	if groupSize <= 0 {
		groupSize = 3
	}
	if inlineTimeout <= 0 {
		inlineTimeout = 60 * time.Second
	}
	return &Scheduler{
		analyzer:      analyzer,
		logger:        logger,
		groupSize:     groupSize,
		inlineTimeout: inlineTimeout,
	}
}

// collector accumulates records across groups. The inline path snapshots it
// when the outer timeout fires while workers are still running.
type collector struct {
	mu      sync.Mutex
	records []models.CompetitorRecord
}

func (c *collector) add(record *models.CompetitorRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, *record)
}

func (c *collector) snapshot() []models.CompetitorRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.CompetitorRecord, len(c.records))
	copy(out, c.records)
	return out
}

// RunInline processes the batch under one outer timeout. When the timeout
// fires, records collected so far are kept and the result is flagged; the
// remaining workers are left to finish in the background with their
// results ignored.
func (s *Scheduler) RunInline(ctx context.Context, domains []string) *BatchResult {
	if len(domains) == 0 {
		return &BatchResult{}
	}

	results := &collector{}
	done := make(chan struct{})

	go func() {
		defer close(done)
		s.runGroups(ctx, domains, results, nil)
	}()

	select {
	case <-done:
		return &BatchResult{Records: results.snapshot()}
	case <-time.After(s.inlineTimeout):
		s.logger.Warn().
			Int("domains", len(domains)).
			Int("collected", len(results.snapshot())).
			Dur("timeout", s.inlineTimeout).
			Msg("Inline competitor batch timed out, keeping partial results")
		return &BatchResult{Records: results.snapshot(), TimedOut: true}
	}
}

// RunEnrichment processes the batch without an outer timeout, emitting the
// live per-competitor progress list to the sink after every transition so
// polling clients see incremental pending -> analyzing -> completed/error
// movement.
func (s *Scheduler) RunEnrichment(ctx context.Context, domains []string, sink ProgressSink) []models.CompetitorRecord {
	if len(domains) == 0 {
		return nil
	}

	results := &collector{}
	s.runGroups(ctx, domains, results, sink)
	return results.snapshot()
}

// runGroups drives the sequential-groups/concurrent-workers schedule shared
// by both paths. sink is nil on the inline path.
func (s *Scheduler) runGroups(ctx context.Context, domains []string, results *collector, sink ProgressSink) {
	progress := make([]models.CompetitorProgressEntry, len(domains))
	for i, domain := range domains {
		progress[i] = models.CompetitorProgressEntry{
			Domain: domain,
			Status: models.CompetitorProgressPending,
		}
	}
	emit := func() {
		if sink != nil {
			snapshot := make([]models.CompetitorProgressEntry, len(progress))
			copy(snapshot, progress)
			sink(snapshot)
		}
	}
	emit()

	var progressMu sync.Mutex

	for start := 0; start < len(domains); start += s.groupSize {
		end := start + s.groupSize
		if end > len(domains) {
			end = len(domains)
		}

		for i := start; i < end; i++ {
			progress[i].Status = models.CompetitorProgressAnalyzing
		}
		emit()

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int, domain string) {
				defer wg.Done()

				record, err := s.analyzer.Analyze(ctx, domain)

				progressMu.Lock()
				defer progressMu.Unlock()
				if err != nil {
					s.logger.Warn().Err(err).Str("domain", domain).Msg("Competitor analysis failed")
					progress[idx].Status = models.CompetitorProgressError
					return
				}

				results.add(record)
				progress[idx].Status = models.CompetitorProgressCompleted
				progress[idx].Score = record.Score
				progress[idx].EarlyFindings = earlyFindings(record)
			}(i, domains[i])
		}
		wg.Wait()
		emit()
	}
}

// earlyFindings surfaces up to two strength/weakness texts for the live
// progress list.
func earlyFindings(record *models.CompetitorRecord) []string {
	var findings []string
	for _, strength := range record.Strengths {
		if len(findings) >= 2 {
			return findings
		}
		findings = append(findings, strength.Text)
	}
	for _, weakness := range record.Weaknesses {
		if len(findings) >= 2 {
			return findings
		}
		findings = append(findings, weakness.Text)
	}
	return findings
}
