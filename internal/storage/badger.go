package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/copyscope/internal/common"
	"github.com/ternarybob/copyscope/internal/interfaces"
	"github.com/ternarybob/copyscope/internal/models"
)

// BadgerStore is the process-local fallback job store. It keeps jobs alive
// through Redis outages: with a configured path it persists across restarts,
// with an empty path it runs purely in memory (local dev and tests).
// Badger entry TTLs provide the same retention semantics as Redis expiry.
type BadgerStore struct {
	db       *badger.DB
	logger   arbor.ILogger
	inMemory bool
}

// NewBadgerStore opens the fallback store at the configured path.
func NewBadgerStore(config common.BadgerConfig, logger arbor.ILogger) (*BadgerStore, error) {
	var opts badger.Options
	if config.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	return &BadgerStore{db: db, logger: logger, inMemory: config.Path == ""}, nil
}

// Get retrieves a job by ID. Returns (nil, nil) when absent or expired.
func (s *BadgerStore) Get(ctx context.Context, id string) (*models.Job, error) {
	var job *models.Job

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(jobKey(id)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			var decoded models.Job
			if err := json.Unmarshal(val, &decoded); err != nil {
				return fmt.Errorf("failed to decode job %s: %w", id, err)
			}
			job = &decoded
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("badger get failed: %w", err)
	}
	return job, nil
}

// Set stores a job with the given TTL.
func (s *BadgerStore) Set(ctx context.Context, id string, job *models.Job, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", id, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(jobKey(id)), data).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set failed: %w", err)
	}
	return nil
}

// Patch applies a read-modify-write mutation inside one transaction,
// carrying the entry's remaining TTL forward.
func (s *BadgerStore) Patch(ctx context.Context, id string, mutate func(*models.Job) error) (*models.Job, error) {
	var job *models.Job

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(jobKey(id)))
		if err == badger.ErrKeyNotFound {
			return interfaces.ErrJobNotFound
		}
		if err != nil {
			return err
		}

		var decoded models.Job
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &decoded)
		}); err != nil {
			return fmt.Errorf("failed to decode job %s: %w", id, err)
		}

		if err := mutate(&decoded); err != nil {
			return err
		}
		decoded.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(&decoded)
		if err != nil {
			return fmt.Errorf("failed to encode job %s: %w", id, err)
		}

		entry := badger.NewEntry([]byte(jobKey(id)), data)
		if expires := item.ExpiresAt(); expires > 0 {
			remaining := time.Until(time.Unix(int64(expires), 0))
			if remaining <= 0 {
				return interfaces.ErrJobNotFound
			}
			entry = entry.WithTTL(remaining)
		}
		if err := txn.SetEntry(entry); err != nil {
			return err
		}

		job = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Ping reports whether the store is usable.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger store is closed")
	}
	return nil
}

// RunGC runs one round of Badger value-log garbage collection. Invoked on a
// schedule by the retention sweeper; a rewrite-not-needed result is normal.
func (s *BadgerStore) RunGC() {
	if s.inMemory {
		return
	}
	if err := s.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
		s.logger.Warn().Err(err).Msg("Badger value-log GC failed")
	}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ interfaces.JobStore = (*BadgerStore)(nil)
