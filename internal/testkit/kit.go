package testkit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/domain/sample"
	"idstat/ports"
)

// InMemorySampleProvider serves a fixed population and enforces the
// per-language cap by seeded shuffle and truncate.
type InMemorySampleProvider struct {
	population map[string][]sample.Observation
	mu         sync.RWMutex
	calls      int
}

// NewInMemorySampleProvider creates a provider over population, keyed by metric.
func NewInMemorySampleProvider(population map[string][]sample.Observation) *InMemorySampleProvider {
	copied := make(map[string][]sample.Observation, len(population))
	for metric, obs := range population {
		copied[metric] = append([]sample.Observation(nil), obs...)
	}
	return &InMemorySampleProvider{population: copied}
}

// Sample implements ports.SampleProvider
func (p *InMemorySampleProvider) Sample(ctx context.Context, req ports.SampleRequest) ([]sample.Observation, error) {
	p.mu.Lock()
	p.calls++
	obs, ok := p.population[req.Metric]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrMetricNotFound, req.Metric)
	}

	filtered := sample.Filter(obs, req.Languages, req.Domains)
	return sample.CapPerLanguage(filtered, req.PerLanguageCap, rand.New(rand.NewSource(req.Seed))), nil
}

// Metrics implements ports.MetricCatalog
func (p *InMemorySampleProvider) Metrics(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	metrics := make([]string, 0, len(p.population))
	for m := range p.population {
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// Calls returns how many samples were drawn.
func (p *InMemorySampleProvider) Calls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls
}

// FailingRecorder rejects every write, for exercising failure paths.
type FailingRecorder struct {
	Err error
}

func (f FailingRecorder) RecordANOVA(ctx context.Context, record run.ANOVARecord) error {
	return f.Err
}

func (f FailingRecorder) RecordDeviations(ctx context.Context, records []run.DeviationRecord) error {
	return f.Err
}

func (f FailingRecorder) RecordFailure(ctx context.Context, record run.FailureRecord) error {
	return f.Err
}
