package storage

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Sweeper runs scheduled maintenance on the fallback store. Badger expires
// entries lazily, so reclaiming space for long-running processes needs
// periodic value-log GC.
type Sweeper struct {
	badger   *BadgerStore
	schedule string
	logger   arbor.ILogger
	cron     *cron.Cron
}

// NewSweeper creates a sweeper with a cron schedule like "@every 10m".
func NewSweeper(badger *BadgerStore, schedule string, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		badger:   badger,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start registers the GC job and starts the scheduler.
func (s *Sweeper) Start() error {
	if s.schedule == "" {
		s.logger.Debug().Msg("Store sweeper disabled - no schedule configured")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.logger.Debug().Msg("Running fallback store GC sweep")
		s.badger.RunGC()
	})
	if err != nil {
		return fmt.Errorf("invalid sweeper schedule '%s': %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("Store sweeper started")
	return nil
}

// Stop stops the scheduler, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
