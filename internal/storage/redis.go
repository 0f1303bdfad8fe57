package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
)

const jobKeyPrefix = "copyscope:job:"

// RedisStore is the primary job store backed by an external Redis instance.
// TTLs map directly onto Redis key expiry.
type RedisStore struct {
	client *redis.Client
	logger arbor.ILogger
}

// NewRedisStore creates a Redis-backed job store.
func NewRedisStore(config common.RedisConfig, logger arbor.ILogger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisStore{
		client: client,
		logger: logger,
	}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

// Get retrieves a job by ID. Returns (nil, nil) when the key is absent or
// already expired.
func (s *RedisStore) Get(ctx context.Context, id string) (*models.Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return &job, nil
}

// Set stores a job with the given TTL, overwriting any prior record.
func (s *RedisStore) Set(ctx context.Context, id string, job *models.Job, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", id, err)
	}

	if err := s.client.Set(ctx, jobKey(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Patch applies a read-modify-write mutation, preserving the key's
// remaining TTL. The read and write are not atomic across processes.
func (s *RedisStore) Patch(ctx context.Context, id string, mutate func(*models.Job) error) (*models.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, interfaces.ErrJobNotFound
	}

	if err := mutate(job); err != nil {
		return nil, err
	}
	job.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job %s: %w", id, err)
	}
	if err := s.client.Set(ctx, jobKey(id), data, redis.KeepTTL).Err(); err != nil {
		return nil, fmt.Errorf("redis patch write failed: %w", err)
	}
	return job, nil
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ interfaces.JobStore = (*RedisStore)(nil)
