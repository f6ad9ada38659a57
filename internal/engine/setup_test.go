package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerkerEOD/filecrack/internal/config"
	"github.com/ZerkerEOD/filecrack/internal/models"
)

func TestNewRunner_TestMode(t *testing.T) {
	runner, mode, err := NewRunner(context.Background(), &config.Config{TestMode: true}, "gpu")
	require.NoError(t, err)
	assert.IsType(t, &MockRunner{}, runner)
	assert.Equal(t, "gpu", mode)
}

func TestNewRunner_MissingEngine(t *testing.T) {
	cfg := &config.Config{HashcatPath: filepath.Join(t.TempDir(), "missing", "hashcat.bin")}
	_, _, err := NewRunner(context.Background(), cfg, "cpu")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrEngineLaunchFailed))
}
