package memory

import (
	"context"
	"sync"

	"idstat/domain/run"
	"idstat/ports"
)

var _ ports.RunStore = (*RunStore)(nil)

// RunStore is a ports.RunStore held in process memory. Records live until
// the process exits.
type RunStore struct {
	anova      []run.ANOVARecord
	deviations []run.DeviationRecord
	failures   []run.FailureRecord
	mu         sync.RWMutex
}

// NewRunStore creates an empty store.
func NewRunStore() *RunStore {
	return &RunStore{}
}

func (s *RunStore) RecordANOVA(ctx context.Context, record run.ANOVARecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anova = append(s.anova, record)
	return nil
}

func (s *RunStore) RecordDeviations(ctx context.Context, records []run.DeviationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviations = append(s.deviations, records...)
	return nil
}

func (s *RunStore) RecordFailure(ctx context.Context, record run.FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, record)
	return nil
}

func (s *RunStore) ListANOVA(ctx context.Context, filter run.Filter) ([]run.ANOVARecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []run.ANOVARecord
	for _, r := range s.anova {
		if filter.Matches(r.StudyID, r.Metric, r.SampleCap) {
			out = append(out, r)
		}
	}
	return limit(out, filter.Limit), nil
}

func (s *RunStore) ListDeviations(ctx context.Context, filter run.Filter) ([]run.DeviationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []run.DeviationRecord
	for _, r := range s.deviations {
		if filter.Matches(r.StudyID, r.Metric, r.SampleCap) {
			out = append(out, r)
		}
	}
	return limit(out, filter.Limit), nil
}

func (s *RunStore) ListFailures(ctx context.Context, filter run.Filter) ([]run.FailureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []run.FailureRecord
	for _, r := range s.failures {
		if filter.Matches(r.StudyID, r.Metric, r.SampleCap) {
			out = append(out, r)
		}
	}
	return limit(out, filter.Limit), nil
}

func limit[T any](records []T, n int) []T {
	if n > 0 && len(records) > n {
		return records[:n]
	}
	return records
}
