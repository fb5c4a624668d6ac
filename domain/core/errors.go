package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrRunNotFound    = fmt.Errorf("%w: run", ErrNotFound)
	ErrMetricNotFound = fmt.Errorf("%w: metric", ErrNotFound)

	// Analysis errors
	ErrInsufficientSample   = errors.New("insufficient sample")
	ErrDesignSingular       = errors.New("design matrix is singular")
	ErrUndefinedEffectSize  = errors.New("effect size undefined")
	ErrCorrectionInputEmpty = errors.New("no p-values to correct")
	ErrZeroVariance         = errors.New("zero variance")

	// Validation errors
	ErrInvalidSettings = errors.New("invalid analysis settings")
	ErrInvalidFactor   = errors.New("invalid factor")
	ErrInvalidSample   = errors.New("invalid sample")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidSettings, field, reason)
}

func NewInsufficientSampleError(group string, n, required int) error {
	return fmt.Errorf("%w: group %q has %d observations, need %d", ErrInsufficientSample, group, n, required)
}

func NewDesignSingularError(model string) error {
	return fmt.Errorf("%w: %s", ErrDesignSingular, model)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInsufficientSample(err error) bool {
	return errors.Is(err, ErrInsufficientSample)
}

func IsDesignSingular(err error) bool {
	return errors.Is(err, ErrDesignSingular)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidSettings) ||
		errors.Is(err, ErrInvalidFactor) ||
		errors.Is(err, ErrInvalidSample)
}

// IsSkippable reports whether err describes a per-unit numeric condition that
// should be recorded alongside results rather than aborting a run.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrInsufficientSample) ||
		errors.Is(err, ErrDesignSingular) ||
		errors.Is(err, ErrUndefinedEffectSize) ||
		errors.Is(err, ErrZeroVariance)
}
