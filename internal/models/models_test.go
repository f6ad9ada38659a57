package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StatePending, StateAnalyzing, true},
		{StatePending, StateCracking, false},
		{StateAnalyzing, StateCracking, true},
		{StateAnalyzing, StateError, true},
		{StateCracking, StateCracking, true},
		{StateCracking, StateSuccess, true},
		{StateCracking, StateFailed, true},
		{StateCracking, StateCancelled, true},
		{StateSuccess, StateCracking, false},
		{StateError, StateAnalyzing, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStateIsTerminal(t *testing.T) {
	for _, s := range []State{StateSuccess, StateFailed, StateCancelled, StateError} {
		assert.True(t, s.IsTerminal(), s)
		assert.True(t, s.Valid())
	}
	for _, s := range []State{StatePending, StateAnalyzing, StateCracking} {
		assert.False(t, s.IsTerminal(), s)
	}
	assert.False(t, State("queued").Valid())
}

func TestCrackErrorMatching(t *testing.T) {
	cause := errors.New("exit status 2")
	err := fmt.Errorf("analyze: %w", WrapError(KindExtractionFailed, cause, "zip2john failed"))

	assert.True(t, errors.Is(err, ErrExtractionFailed))
	assert.False(t, errors.Is(err, ErrExtractionTimeout))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindExtractionFailed, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
	assert.Equal(t, "analyze: ExtractionFailed: zip2john failed: exit status 2", err.Error())
	assert.Equal(t, "UnsupportedFormat: .bin", NewError(KindUnsupportedFormat, ".bin").Error())
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile("")
	require.NoError(t, err)
	assert.Equal(t, ProfileNormal, p)

	p, err = ParseProfile("advanced")
	require.NoError(t, err)
	assert.Equal(t, ProfileAdvanced, p)

	_, err = ParseProfile("extreme")
	assert.Error(t, err)
}

func TestTaskStatus(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	task := &Task{
		ID:         "t1",
		State:      StateSuccess,
		StageIndex: 1,
		StageCount: 3,
		Budget:     time.Hour,
		StartedAt:  &start,
		Result:     &Result{Password: "Summer2024!"},
	}
	done := start.Add(30 * time.Minute)
	task.CompletedAt = &done

	st := task.Status(start.Add(5 * time.Hour))
	assert.Equal(t, 30*time.Minute, st.Elapsed)
	assert.InDelta(t, 0.5, st.BudgetRatio, 0.0001)
	assert.Equal(t, "Summer2024!", st.Password)

	task.State = StateFailed
	task.ErrorMessage = "password not found within configured strategies"
	st = task.Status(done)
	assert.Empty(t, st.Password)
	assert.Equal(t, task.ErrorMessage, st.FailureReason)
	assert.True(t, ContainerExcel.IsOffice())
	assert.Equal(t, "13600", AlgorithmID(13600).String())
}
