// Package app wires configuration, storage, services, and handlers into a
// single application object the server runs against.
package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/handlers"
	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/services/competitor"
	"github.com/ternarybob/copyscope/internal/services/crawler"
	"github.com/ternarybob/copyscope/internal/services/discovery"
	"github.com/ternarybob/copyscope/internal/services/jobs"
	"github.com/ternarybob/copyscope/internal/services/llm"
	"github.com/ternarybob/copyscope/internal/services/scoring"
	"github.com/ternarybob/copyscope/internal/services/status"
	"github.com/ternarybob/copyscope/internal/storage"
)

// App holds all initialized components.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Storage    *storage.Manager
	LLMService interfaces.LLMService
	JobService *jobs.Service

	JobHandler    *handlers.JobHandler
	StatusHandler *handlers.StatusHandler
}

// New initializes the application: storage first, then the LLM client, then
// the pipeline services, then the HTTP handlers.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	manager, err := storage.NewManager(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := manager.Start(); err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to start storage: %w", err)
	}
	store := manager.JobStore()

	llmService, err := llm.NewClaudeService(&config.Claude, logger)
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}

	crawlService := crawler.NewService(config.Crawler, logger)
	scoringService := scoring.NewService(llmService, logger)
	discoveryService := discovery.NewService(llmService, logger)

	analyzer := competitor.NewAnalyzer(crawlService, llmService, logger, config.Pipeline.CrawlTimeout())
	scheduler := competitor.NewScheduler(analyzer, logger, config.Pipeline.CompetitorGroupSize, config.Pipeline.InlineTimeout())

	jobService := jobs.NewService(store, crawlService, scoringService, discoveryService, scheduler, config, logger)
	statusService := status.NewService(store, llmService, logger)

	app := &App{
		Config:        config,
		Logger:        logger,
		Storage:       manager,
		LLMService:    llmService,
		JobService:    jobService,
		JobHandler:    handlers.NewJobHandler(jobService, logger),
		StatusHandler: handlers.NewStatusHandler(statusService, logger),
	}

	logger.Info().
		Str("version", common.GetVersion()).
		Msg("Application initialized")

	return app, nil
}

// Close shuts down components in reverse initialization order.
func (a *App) Close() {
	if a.LLMService != nil {
		a.LLMService.Close()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close storage")
		}
	}
	a.Logger.Info().Msg("Application closed")
}
