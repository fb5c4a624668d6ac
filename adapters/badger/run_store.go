// Package badger keeps run records in an embedded BadgerDB, for studies run
// without a Postgres server.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/ports"
)

// Config configures the store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in memory, for tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives BadgerDB's internal log lines. Nil disables them.
	Logger *zap.Logger
}

// InMemoryConfig returns a configuration suitable for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// zapLogger adapts zap to badger.Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...interface{})    { l.s.Infof(format, args...) }
func (l zapLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// RunStore implements ports.RunStore. Keys are
// <kind>/<study>/<created_at_nanos>/<record_id>, so a prefix scan returns a
// study's records oldest first.
type RunStore struct {
	db *badger.DB
}

var _ ports.RunStore = (*RunStore)(nil)

// Open opens or creates the store.
func Open(cfg Config) (*RunStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, core.NewValidationError("badger_dir", "path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(zapLogger{s: cfg.Logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &RunStore{db: db}, nil
}

// Close releases the database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

const (
	kindANOVA     = "anova"
	kindDeviation = "deviation"
	kindFailure   = "failure"
)

func recordKey(kind string, studyID core.StudyID, created core.Timestamp, id core.RunID) []byte {
	return []byte(fmt.Sprintf("%s/%s/%020d/%s", kind, studyID, created.Time().UnixNano(), id))
}

func scanPrefix(kind string, filter run.Filter) []byte {
	if filter.StudyID != "" {
		return []byte(fmt.Sprintf("%s/%s/", kind, filter.StudyID))
	}
	return []byte(kind + "/")
}

func put(txn *badger.Txn, key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func (s *RunStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

// RecordANOVA implements ports.RunRecorder
func (s *RunStore) RecordANOVA(ctx context.Context, record run.ANOVARecord) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return put(txn, recordKey(kindANOVA, record.StudyID, record.CreatedAt, record.ID), record)
	})
}

// RecordDeviations implements ports.RunRecorder
func (s *RunStore) RecordDeviations(ctx context.Context, records []run.DeviationRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		for _, r := range records {
			if err := put(txn, recordKey(kindDeviation, r.StudyID, r.CreatedAt, r.ID), r); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordFailure implements ports.RunRecorder
func (s *RunStore) RecordFailure(ctx context.Context, record run.FailureRecord) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return put(txn, recordKey(kindFailure, record.StudyID, record.CreatedAt, record.ID), record)
	})
}

// scan decodes every value under the filter's prefix, stopping at the limit.
func scan[T any](ctx context.Context, db *badger.DB, kind string, filter run.Filter, keep func(T) bool) ([]T, error) {
	var out []T
	err := db.View(func(txn *badger.Txn) error {
		prefix := scanPrefix(kind, filter)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec T
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if !keep(rec) {
				continue
			}
			out = append(out, rec)
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	return out, err
}

// ListANOVA implements ports.RunReader
func (s *RunStore) ListANOVA(ctx context.Context, filter run.Filter) ([]run.ANOVARecord, error) {
	return scan(ctx, s.db, kindANOVA, filter, func(r run.ANOVARecord) bool {
		return filter.Matches(r.StudyID, r.Metric, r.SampleCap)
	})
}

// ListDeviations implements ports.RunReader
func (s *RunStore) ListDeviations(ctx context.Context, filter run.Filter) ([]run.DeviationRecord, error) {
	return scan(ctx, s.db, kindDeviation, filter, func(r run.DeviationRecord) bool {
		return filter.Matches(r.StudyID, r.Metric, r.SampleCap)
	})
}

// ListFailures implements ports.RunReader
func (s *RunStore) ListFailures(ctx context.Context, filter run.Filter) ([]run.FailureRecord, error) {
	return scan(ctx, s.db, kindFailure, filter, func(r run.FailureRecord) bool {
		return filter.Matches(r.StudyID, r.Metric, r.SampleCap)
	})
}
