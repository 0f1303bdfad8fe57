package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/interfaces"
)

// Manager owns the configured job store and its maintenance schedule.
type Manager struct {
	store   interfaces.JobStore
	badger  *BadgerStore
	sweeper *Sweeper
	logger  arbor.ILogger
}

// NewManager builds the job store from configuration. With a Redis address
// configured the store is Redis fronting a Badger fallback; without one the
// Badger store runs alone (local development).
func NewManager(config *common.Config, logger arbor.ILogger) (*Manager, error) {
	badgerStore, err := NewBadgerStore(config.Storage.Badger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fallback store: %w", err)
	}

	manager := &Manager{
		badger: badgerStore,
		logger: logger,
	}

	if config.Storage.Redis.Addr == "" {
		logger.Warn().Msg("No Redis address configured - jobs are process-local only")
		manager.store = badgerStore
	} else {
		redisStore := NewRedisStore(config.Storage.Redis, logger)
		manager.store = NewFailoverStore(redisStore, badgerStore, logger)
		logger.Info().
			Str("redis_addr", config.Storage.Redis.Addr).
			Str("fallback_path", config.Storage.Badger.Path).
			Msg("Job store initialized with local fallback")
	}

	manager.sweeper = NewSweeper(badgerStore, config.Storage.Badger.GCSchedule, logger)

	return manager, nil
}

// JobStore returns the active job store.
func (m *Manager) JobStore() interfaces.JobStore {
	return m.store
}

// Start begins background store maintenance.
func (m *Manager) Start() error {
	return m.sweeper.Start()
}

// Close stops maintenance and closes the store.
func (m *Manager) Close() error {
	m.sweeper.Stop()
	return m.store.Close()
}
