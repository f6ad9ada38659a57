package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/var/lib/filecrack")

	cfg := FromEnv()
	assert.Equal(t, filepath.Join("/var/lib/filecrack", "work"), cfg.WorkDir)
	assert.Equal(t, filepath.Join("/var/lib/filecrack", "wordlists", "common.txt"), cfg.DictionaryPath)
	assert.Equal(t, 30*time.Second, cfg.ExtractionTimeout)
	assert.Equal(t, 6, cfg.MaskLength)
	assert.Equal(t, 8, cfg.IncrementMax)
	assert.Equal(t, "cpu", cfg.DeviceMode)
	assert.Equal(t, time.Hour, cfg.Budget(models.ProfileSimple))
	assert.Equal(t, 24*time.Hour, cfg.Budget(models.ProfileNormal))
	assert.Equal(t, 7*24*time.Hour, cfg.Budget(models.ProfileAdvanced))
	assert.True(t, cfg.SniffContent)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("EXTRACTION_TIMEOUT", "45")
	t.Setenv("BUDGET_NORMAL", "90m")
	t.Setenv("HASHCAT_EXTRA_PARAMS", "-w 3 -O")
	t.Setenv("DEVICE_MODE", "GPU")
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")
	t.Setenv("VERIFY_PASSWORDS", "false")

	cfg := FromEnv()
	assert.Equal(t, 45*time.Second, cfg.ExtractionTimeout)
	assert.Equal(t, 90*time.Minute, cfg.Budget(models.ProfileNormal))
	assert.Equal(t, []string{"-w", "3", "-O"}, cfg.HashcatExtraParams)
	assert.Equal(t, "gpu", cfg.DeviceMode)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.False(t, cfg.VerifyPasswords)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad device", func(c *Config) { c.DeviceMode = "tpu" }},
		{"bad driver", func(c *Config) { c.DatabaseDriver = "mysql" }},
		{"zero extraction timeout", func(c *Config) { c.ExtractionTimeout = 0 }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"negative budget", func(c *Config) { c.Budgets[models.ProfileSimple] = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
