package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
	"github.com/ternarybob/copyscope/internal/services/competitor"
)

// memStore is an in-memory JobStore. Records are JSON round-tripped so
// callers never share pointers with the store, matching the real stores.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, id string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	var job models.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (m *memStore) Set(ctx context.Context, id string, job *models.Job, ttl time.Duration) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = raw
	return nil
}

func (m *memStore) Patch(ctx context.Context, id string, mutate func(*models.Job) error) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.data[id]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	var job models.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	if err := mutate(&job); err != nil {
		return nil, err
	}
	job.UpdatedAt = time.Now().UTC()
	updated, err := json.Marshal(&job)
	if err != nil {
		return nil, err
	}
	m.data[id] = updated
	return &job, nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }
func (m *memStore) Close() error                   { return nil }

type fakeCrawler struct {
	pages []models.PageRecord
	err   error
	calls int32
}

func (f *fakeCrawler) Crawl(ctx context.Context, targetURL string, maxPages int, onProgress interfaces.CrawlProgressFunc) (*models.CrawlResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	if onProgress != nil {
		for i := range f.pages {
			onProgress(i+1, len(f.pages), f.pages[i].URL)
		}
	}
	return &models.CrawlResult{Pages: f.pages}, nil
}

type fakeScorer struct {
	result *models.AnalysisResult
	err    error
}

func (f *fakeScorer) Score(ctx context.Context, crawl *models.CrawlResult, targetURL string) (*models.AnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	clone := *f.result
	return &clone, nil
}

// gateScorer blocks inside Score until released, holding the pipeline in
// the analyzing phase.
type gateScorer struct {
	result  *models.AnalysisResult
	release chan struct{}
}

func (f *gateScorer) Score(ctx context.Context, crawl *models.CrawlResult, targetURL string) (*models.AnalysisResult, error) {
	<-f.release
	clone := *f.result
	return &clone, nil
}

type fakeDiscovery struct {
	domains []string
	calls   int32
}

func (f *fakeDiscovery) Discover(ctx context.Context, crawl *models.CrawlResult, targetURL string) []string {
	atomic.AddInt32(&f.calls, 1)
	return f.domains
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, domain string) (*models.CompetitorRecord, error) {
	return &models.CompetitorRecord{
		Domain:     domain,
		Score:      62,
		AnalyzedAt: time.Now().UTC(),
	}, nil
}

func testConfig() *common.Config {
	config := common.DefaultConfig()
	config.Pipeline.ProgressInterval = "0s"
	config.Pipeline.InlineBatchTimeout = "5s"
	return config
}

func newTestService(store interfaces.JobStore, crawler interfaces.CrawlService, scorer interfaces.ScoringService, discovery interfaces.DiscoveryService) *Service {
	logger := arbor.NewLogger()
	scheduler := competitor.NewScheduler(stubAnalyzer{}, logger, 3, 5*time.Second)
	return NewService(store, crawler, scorer, discovery, scheduler, testConfig(), logger)
}

func defaultResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		OverallScore: 64,
		Categories:   models.CategoryScores{Clarity: 7, Specificity: 6, Proof: 5, Differentiation: 7},
		Issues: []models.Issue{
			{Title: "Headline does not state what you do", Severity: "high"},
			{Title: "No proof points above the fold", Severity: "medium"},
		},
		SuggestedCompetitors: []models.SuggestedCompetitor{
			{Domain: "rival-one.com", Confidence: models.ConfidenceMedium},
			{Domain: "rival-two.com", Confidence: models.ConfidenceHigh},
		},
	}
}

func homePage() []models.PageRecord {
	return []models.PageRecord{
		{URL: "https://example.com/", Path: "/", Title: "Example", Content: "We fix pipes."},
		{URL: "https://example.com/about", Path: "/about", Title: "About", Content: "Since 1990."},
	}
}

// waitForStatus polls the store until the job reaches the wanted status or
// the deadline passes.
func waitForStatus(t *testing.T, store interfaces.JobStore, id string, want models.JobStatus) *models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		if job != nil && job.Status == want {
			return job
		}
		if job != nil && job.Status == models.JobStatusFailed && want != models.JobStatusFailed {
			t.Fatalf("job failed while waiting for %s: %s", want, job.Message)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job never reached status %s", want)
	return nil
}

func waitForEnrichment(t *testing.T, store interfaces.JobStore, id string, want models.EnrichmentStatus) *models.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		if job != nil && job.Enrichment.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("enrichment never reached status %s", want)
	return nil
}

func TestCreateJob(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeCrawler{pages: homePage()}, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	job, err := service.CreateJob(context.Background(), "Example.com", "owner@example.com")
	require.NoError(t, err)

	require.Equal(t, models.JobStatusPending, job.Status)
	require.Equal(t, "https://example.com", job.URL)
	require.Contains(t, job.ID, "job_")

	// Creation never starts the pipeline.
	stored, err := store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusPending, stored.Status)
}

func TestCreateJobRejectsBadURL(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeCrawler{}, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	_, err := service.CreateJob(context.Background(), "not a url at all", "")
	require.Error(t, err)
}

func TestFirstPollRunsPipelineToCompletion(t *testing.T) {
	store := newMemStore()
	crawler := &fakeCrawler{pages: homePage()}
	service := newTestService(store, crawler, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	job, err := service.CreateJob(context.Background(), "https://example.com", "")
	require.NoError(t, err)

	// First poll claims the job and returns the crawling snapshot.
	snapshot, err := service.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCrawling, snapshot.Status)

	final := waitForStatus(t, store, job.ID, models.JobStatusComplete)

	require.Equal(t, 100, final.Progress)
	require.NotNil(t, final.Results)
	require.NotNil(t, final.Results.Comparison, "complete job must always carry a comparison")
	require.NotNil(t, final.Preview)
	require.NotNil(t, final.CompletedAt)
	require.Equal(t, len(homePage()), final.PagesCrawled)

	// Suggested competitors were analyzed, highest confidence first.
	records := final.Results.Comparison.DetailedScores
	require.Len(t, records, 2)
	require.Equal(t, "rival-two.com", records[0].Domain)
}

func TestConcurrentPollsTriggerPipelineOnce(t *testing.T) {
	store := newMemStore()
	crawler := &fakeCrawler{pages: homePage()}
	service := newTestService(store, crawler, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	job, err := service.CreateJob(context.Background(), "https://example.com", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.GetStatus(context.Background(), job.ID)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	waitForStatus(t, store, job.ID, models.JobStatusComplete)

	require.Equal(t, int32(1), atomic.LoadInt32(&crawler.calls), "pipeline must start exactly once")
}

func TestPollAfterCompletionReturnsSnapshot(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeCrawler{pages: homePage()}, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	job, err := service.CreateJob(context.Background(), "https://example.com", "")
	require.NoError(t, err)

	_, err = service.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	waitForStatus(t, store, job.ID, models.JobStatusComplete)

	again, err := service.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobStatusComplete, again.Status)
}

func TestGetStatusUnknownJob(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeCrawler{}, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	_, err := service.GetStatus(context.Background(), "job_missing")
	require.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestPipelineFailsWhenCrawlReturnsNothing(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeCrawler{err: errors.New("failed to fetch https://example.com")}, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	job, err := service.CreateJob(context.Background(), "https://example.com", "")
	require.NoError(t, err)

	_, err = service.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)

	final := waitForStatus(t, store, job.ID, models.JobStatusFailed)
	require.Contains(t, final.Message, "couldn't read any pages")
}

func TestDiscoveryFallbackOnlyWhenNoSuggestions(t *testing.T) {
	store := newMemStore()
	result := defaultResult()
	result.SuggestedCompetitors = nil
	discovery := &fakeDiscovery{domains: []string{"found-one.com", "example.com"}}
	service := newTestService(store, &fakeCrawler{pages: homePage()}, &fakeScorer{result: result}, discovery)

	job, err := service.CreateJob(context.Background(), "https://example.com", "")
	require.NoError(t, err)

	_, err = service.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	final := waitForStatus(t, store, job.ID, models.JobStatusComplete)

	require.Equal(t, int32(1), atomic.LoadInt32(&discovery.calls))

	// The target's own domain is excluded from discovered candidates.
	records := final.Results.Comparison.DetailedScores
	require.Len(t, records, 1)
	require.Equal(t, "found-one.com", records[0].Domain)
}

func TestMarkPaid(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeCrawler{pages: homePage()}, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	job, err := service.CreateJob(context.Background(), "https://example.com", "")
	require.NoError(t, err)

	paid, err := service.MarkPaid(context.Background(), job.ID)
	require.NoError(t, err)
	require.True(t, paid.Paid)

	// Idempotent on repeat confirmation.
	again, err := service.MarkPaid(context.Background(), job.ID)
	require.NoError(t, err)
	require.True(t, again.Paid)
}

func TestEnrichMergesIntoExistingComparison(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeCrawler{pages: homePage()}, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	job, err := service.CreateJob(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	_, err = service.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	waitForStatus(t, store, job.ID, models.JobStatusComplete)

	updated, err := service.Enrich(context.Background(), job.ID, []string{"https://new-rival.com"}, nil, "")
	require.NoError(t, err)
	require.Equal(t, models.EnrichmentStatusAnalyzing, updated.Enrichment.Status)

	final := waitForEnrichment(t, store, job.ID, models.EnrichmentStatusComplete)

	require.Equal(t, 100, final.Enrichment.Progress)
	require.Empty(t, final.Enrichment.CompetitorProgress, "transient progress must be cleared")

	domains := map[string]bool{}
	for _, record := range final.Results.Comparison.DetailedScores {
		domains[record.Domain] = true
	}
	require.True(t, domains["new-rival.com"], "new competitor merged in")
	require.True(t, domains["rival-one.com"], "pipeline competitors preserved")
	require.True(t, domains["rival-two.com"], "pipeline competitors preserved")

	// Aggregates recomputed over the merged set.
	require.Equal(t, 62, final.Results.Comparison.AverageScore)
}

func TestEnrichmentFinishingMidPipelineIsPreserved(t *testing.T) {
	store := newMemStore()
	scorer := &gateScorer{result: defaultResult(), release: make(chan struct{})}
	service := newTestService(store, &fakeCrawler{pages: homePage()}, scorer, &fakeDiscovery{})

	job, err := service.CreateJob(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	_, err = service.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)

	// The pipeline is now parked inside the scorer.
	waitForStatus(t, store, job.ID, models.JobStatusAnalyzing)

	_, err = service.Enrich(context.Background(), job.ID, []string{"https://new-rival.com"}, nil, "")
	require.NoError(t, err)
	enriched := waitForEnrichment(t, store, job.ID, models.EnrichmentStatusComplete)
	require.NotNil(t, enriched.Results)
	require.NotNil(t, enriched.Results.Comparison)

	close(scorer.release)
	final := waitForStatus(t, store, job.ID, models.JobStatusComplete)

	// Completion unions the inline batch with the records enrichment
	// already landed; it must not replace them.
	domains := map[string]bool{}
	for _, record := range final.Results.Comparison.DetailedScores {
		domains[record.Domain] = true
	}
	require.True(t, domains["new-rival.com"], "enrichment record must survive pipeline completion")
	require.True(t, domains["rival-one.com"])
	require.True(t, domains["rival-two.com"])
	require.Equal(t, 62, final.Results.Comparison.AverageScore)
}

func TestEnrichDeduplicatesResubmission(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeCrawler{pages: homePage()}, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	job, err := service.CreateJob(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	_, err = service.GetStatus(context.Background(), job.ID)
	require.NoError(t, err)
	waitForStatus(t, store, job.ID, models.JobStatusComplete)

	_, err = service.Enrich(context.Background(), job.ID, []string{"dup.com"}, nil, "")
	require.NoError(t, err)
	waitForEnrichment(t, store, job.ID, models.EnrichmentStatusComplete)

	updated, err := service.Enrich(context.Background(), job.ID, []string{"dup.com", "fresh.com"}, nil, "")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"dup.com", "fresh.com"}, updated.Enrichment.PendingCompetitors)

	final := waitForEnrichment(t, store, job.ID, models.EnrichmentStatusComplete)
	count := 0
	for _, record := range final.Results.Comparison.DetailedScores {
		if record.Domain == "dup.com" {
			count++
		}
	}
	require.Equal(t, 1, count, "resubmitted domain must not duplicate")
}

func TestEnrichRejectsFailedJob(t *testing.T) {
	store := newMemStore()
	service := newTestService(store, &fakeCrawler{}, &fakeScorer{result: defaultResult()}, &fakeDiscovery{})

	job := &models.Job{
		ID:     "job_failed",
		URL:    "https://example.com",
		Status: models.JobStatusFailed,
	}
	require.NoError(t, store.Set(context.Background(), job.ID, job, time.Hour))

	_, err := service.Enrich(context.Background(), job.ID, []string{"a.com"}, nil, "")
	require.Error(t, err)
}

func TestDeriveFailureMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.New("crawl returned no pages for https://x.com"), "couldn't read any pages"},
		{errors.New("scoring failed: api error"), "couldn't complete"},
		{errors.New("context deadline exceeded"), "took too long"},
		{errors.New("something odd"), "Something went wrong"},
		{nil, "unknown reason"},
	}

	for _, tt := range tests {
		got := deriveFailureMessage(tt.err)
		require.Contains(t, got, tt.want, fmt.Sprintf("for error %v", tt.err))
	}
}
