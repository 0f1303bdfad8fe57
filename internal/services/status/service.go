package status

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/interfaces"
)

// Service reports service health: store reachability, LLM configuration,
// version and uptime. It holds no mutable state beyond the start time.
type Service struct {
	store     interfaces.JobStore
	llm       interfaces.LLMService
	logger    arbor.ILogger
	startedAt time.Time
	mu        sync.Mutex
	lastLLM   time.Time
	llmOK     bool
}

// NewService creates the status service.
func NewService(store interfaces.JobStore, llm interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{
		store:     store,
		llm:       llm,
		logger:    logger,
		startedAt: time.Now().UTC(),
	}
}

// GetStatus returns the current service health snapshot. The LLM probe is
// cached for a minute so status polls do not burn API calls.
func (s *Service) GetStatus(ctx context.Context) map[string]interface{} {
	storeState := "ok"
	if err := s.store.Ping(ctx); err != nil {
		storeState = "degraded"
		s.logger.Warn().Err(err).Msg("Store ping failed")
	}

	llmState := "unconfigured"
	if s.llm != nil {
		if s.probeLLM(ctx) {
			llmState = "ok"
		} else {
			llmState = "error"
		}
	}

	return map[string]interface{}{
		"status":    "running",
		"version":   common.GetVersion(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"store":     storeState,
		"llm":       llmState,
		"timestamp": time.Now().UTC(),
	}
}

func (s *Service) probeLLM(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastLLM) < time.Minute {
		return s.llmOK
	}

	err := s.llm.HealthCheck(ctx)
	s.lastLLM = time.Now()
	s.llmOK = err == nil
	if err != nil {
		s.logger.Warn().Err(err).Msg("LLM health check failed")
	}
	return s.llmOK
}
