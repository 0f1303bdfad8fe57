package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/copyscope/internal/models"
)

// JobStore is the key-value persistence contract for Job records.
//
// Get returns (nil, nil) when the job does not exist. Set overwrites the
// record and resets its TTL. Patch is a read-modify-write: implementations
// serialize concurrent patches within one process, but cross-process patches
// can still interleave (see the jobs service for the accepted race).
type JobStore interface {
	Get(ctx context.Context, id string) (*models.Job, error)
	Set(ctx context.Context, id string, job *models.Job, ttl time.Duration) error
	Patch(ctx context.Context, id string, mutate func(*models.Job) error) (*models.Job, error)
	Ping(ctx context.Context) error
	Close() error
}

// ErrJobNotFound is returned by Patch when the job record does not exist.
var ErrJobNotFound = errors.New("job not found")
