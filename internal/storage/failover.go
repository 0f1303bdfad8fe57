package storage

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
)

// FailoverStore routes job operations to the primary store and degrades to
// the process-local fallback when the primary is unreachable. Store
// unavailability is logged and absorbed here; it never propagates to the
// pipeline.
//
// Patches are serialized per job ID within this process. Across processes
// the read-modify-write remains non-atomic; the jobs service documents the
// accepted race.
type FailoverStore struct {
	primary  interfaces.JobStore
	fallback interfaces.JobStore
	logger   arbor.ILogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFailoverStore wraps a primary store with a local fallback.
func NewFailoverStore(primary, fallback interfaces.JobStore, logger arbor.ILogger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// jobLock returns the per-job mutex, creating it on first use. Lock entries
// are small and jobs expire quickly, so they are never reclaimed.
func (s *FailoverStore) jobLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Get reads from the primary store, consulting the fallback when the
// primary errors or has no record (the job may have been written during an
// outage).
func (s *FailoverStore) Get(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.primary.Get(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("Primary store get failed, using fallback")
		return s.fallback.Get(ctx, id)
	}
	if job == nil {
		return s.fallback.Get(ctx, id)
	}
	return job, nil
}

// Set writes to the primary store, degrading to the fallback on failure.
func (s *FailoverStore) Set(ctx context.Context, id string, job *models.Job, ttl time.Duration) error {
	if err := s.primary.Set(ctx, id, job, ttl); err != nil {
		s.logger.Warn().Err(err).Str("job_id", id).Msg("Primary store set failed, using fallback")
		return s.fallback.Set(ctx, id, job, ttl)
	}
	return nil
}

// Patch serializes the mutation per job ID, then applies it to whichever
// store currently holds the record.
func (s *FailoverStore) Patch(ctx context.Context, id string, mutate func(*models.Job) error) (*models.Job, error) {
	lock := s.jobLock(id)
	lock.Lock()
	defer lock.Unlock()

	job, err := s.primary.Patch(ctx, id, mutate)
	if err == nil {
		return job, nil
	}
	if err == interfaces.ErrJobNotFound {
		// The record may live only in the fallback store.
		return s.fallback.Patch(ctx, id, mutate)
	}

	s.logger.Warn().Err(err).Str("job_id", id).Msg("Primary store patch failed, using fallback")
	return s.fallback.Patch(ctx, id, mutate)
}

// Ping reports healthy when either store is reachable.
func (s *FailoverStore) Ping(ctx context.Context) error {
	if err := s.primary.Ping(ctx); err == nil {
		return nil
	}
	return s.fallback.Ping(ctx)
}

// Close closes both stores.
func (s *FailoverStore) Close() error {
	err := s.primary.Close()
	if ferr := s.fallback.Close(); err == nil {
		err = ferr
	}
	return err
}

var _ interfaces.JobStore = (*FailoverStore)(nil)
