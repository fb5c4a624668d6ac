package ports

import (
	"context"

	"idstat/domain/run"
)

// RunRecorder appends result records. Each call is independent; a failure
// leaves previously recorded units intact.
type RunRecorder interface {
	RecordANOVA(ctx context.Context, record run.ANOVARecord) error
	RecordDeviations(ctx context.Context, records []run.DeviationRecord) error
	RecordFailure(ctx context.Context, record run.FailureRecord) error
}

// RunReader provides read-only access to recorded runs for reporting.
type RunReader interface {
	ListANOVA(ctx context.Context, filter run.Filter) ([]run.ANOVARecord, error)
	ListDeviations(ctx context.Context, filter run.Filter) ([]run.DeviationRecord, error)
	ListFailures(ctx context.Context, filter run.Filter) ([]run.FailureRecord, error)
}

// RunStore is a recorder that can also be read back.
type RunStore interface {
	RunRecorder
	RunReader
}
