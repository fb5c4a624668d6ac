package app

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"idstat/domain/core"
	"idstat/domain/run"
	"idstat/domain/stats"
)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordANOVA(ctx context.Context, record run.ANOVARecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockRecorder) RecordDeviations(ctx context.Context, records []run.DeviationRecord) error {
	return m.Called(ctx, records).Error(0)
}

func (m *mockRecorder) RecordFailure(ctx context.Context, record run.FailureRecord) error {
	return m.Called(ctx, record).Error(0)
}

func TestRunUnitRecorderContract(t *testing.T) {
	rec := &mockRecorder{}
	studyID := core.StudyID("contract")
	unit := testUnit(flatMetric, 0)

	for _, variant := range unit.Variants {
		variant := variant
		rec.On("RecordANOVA", mock.Anything, mock.MatchedBy(func(r run.ANOVARecord) bool {
			return r.StudyID == studyID && r.UnitID == unit.ID && r.DesignVariant == variant && r.N == 240
		})).Return(nil).Once()
	}
	rec.On("RecordDeviations", mock.Anything, mock.MatchedBy(func(rs []run.DeviationRecord) bool {
		return len(rs) == 4 && rs[0].Comparison == stats.ComparisonLanguageVsRest
	})).Return(nil).Once()
	rec.On("RecordDeviations", mock.Anything, mock.MatchedBy(func(rs []run.DeviationRecord) bool {
		return len(rs) == 28 && rs[0].Comparison == stats.ComparisonCellPairwise
	})).Return(stderrors.New("disk full")).Once()
	rec.On("RecordFailure", mock.Anything, mock.Anything).Return(nil).Maybe()

	result, err := newService(t, rec, nil).RunUnit(context.Background(), studyID, unit)
	require.NoError(t, err)

	rec.AssertExpectations(t)
	rec.AssertNotCalled(t, "RecordFailure", mock.Anything, mock.Anything)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, run.StageRecord, result.Failures[0].Stage)
	assert.Contains(t, result.Failures[0].Error, "disk full")
}
