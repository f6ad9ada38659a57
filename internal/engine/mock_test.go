package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

func TestMockRunner(t *testing.T) {
	m := &MockRunner{Password: "Summer2024!", FoundAtStage: 1, StageDuration: 50 * time.Millisecond, Ticks: 5}

	req := testRequest(time.Minute)
	var progress []float64
	res, err := m.Run(context.Background(), req, func(ev LineEvent) {
		if ev.HasProgress {
			progress = append(progress, ev.Progress)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, []float64{20, 40, 60, 80, 100}, progress)

	req.Stage = models.AttackStage{Index: 1, Kind: models.AttackDictionary}
	res, err = m.Run(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, res.Outcome)
	assert.Equal(t, "Summer2024!", res.Password)
}

func TestMockRunner_TimeoutAndCancel(t *testing.T) {
	m := &MockRunner{FoundAtStage: -1, StageDuration: time.Minute, Ticks: 2}

	res, err := m.Run(context.Background(), testRequest(50*time.Millisecond), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimeout, res.Outcome)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err = m.Run(ctx, testRequest(time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, res.Outcome)
}

func TestNewMockRunnerFromEnv(t *testing.T) {
	t.Setenv("MOCK_PASSWORD", "letmein")
	t.Setenv("MOCK_FOUND_AT_STAGE", "2")
	t.Setenv("MOCK_STAGE_DURATION", "1s")

	m := NewMockRunnerFromEnv()
	assert.Equal(t, "letmein", m.Password)
	assert.Equal(t, 2, m.FoundAtStage)
	assert.Equal(t, time.Second, m.StageDuration)
}

func TestMockRunner_ZeroDuration(t *testing.T) {
	m := &MockRunner{Password: "pw", FoundAtStage: -1}

	res, err := m.Run(context.Background(), testRequest(time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, 3, res.Lines)
}
