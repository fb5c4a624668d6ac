package ports

import (
	"context"

	"idstat/domain/sample"
)

// SampleRequest describes the observations wanted for one unit of work.
type SampleRequest struct {
	Metric         string
	Languages      []string
	Domains        []string
	PerLanguageCap int
	// Seed drives the shuffle used to enforce the cap.
	Seed int64
}

// SampleProvider supplies labeled metric observations. Implementations must
// return at most PerLanguageCap observations per language, all finite.
type SampleProvider interface {
	Sample(ctx context.Context, req SampleRequest) ([]sample.Observation, error)
}

// MetricCatalog lists the metric names a provider can sample.
type MetricCatalog interface {
	Metrics(ctx context.Context) ([]string, error)
}
