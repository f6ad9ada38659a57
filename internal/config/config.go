package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// Config holds every runtime setting for the CLI and the worker daemon.
type Config struct {
	DataDir    string
	WorkDir    string
	ToolsDir   string
	PerlPath   string
	PythonPath string

	HashcatPath        string
	HashcatExtraParams []string
	StatusTimer        time.Duration
	DeviceMode         string

	DictionaryPath string
	RulesPath      string
	MaskLength     int
	IncrementMax   int

	ExtractionTimeout time.Duration
	SniffContent      bool
	VerifyPasswords   bool
	Budgets           map[models.Profile]time.Duration

	Concurrency    int
	DatabaseDriver string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	QueueName      string
	PollInterval   time.Duration
	NotifyURL      string

	JanitorSchedule string
	StaleTaskAfter  time.Duration

	TestMode bool
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		debug.Warning("Failed to load .env file: %v", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	dataDir := getEnvString("DATA_DIR", "data")

	cfg := &Config{
		DataDir:    dataDir,
		WorkDir:    getEnvString("WORK_DIR", filepath.Join(dataDir, "work")),
		ToolsDir:   getEnvString("TOOLS_DIR", filepath.Join(dataDir, "tools")),
		PerlPath:   getEnvString("PERL_PATH", "perl"),
		PythonPath: getEnvString("PYTHON_PATH", "python3"),

		HashcatPath:        os.Getenv("HASHCAT_PATH"),
		HashcatExtraParams: strings.Fields(os.Getenv("HASHCAT_EXTRA_PARAMS")),
		StatusTimer:        getEnvDuration("HASHCAT_STATUS_TIMER", 10*time.Second),
		DeviceMode:         strings.ToLower(getEnvString("DEVICE_MODE", "cpu")),

		DictionaryPath: getEnvString("DICTIONARY_PATH", filepath.Join(dataDir, "wordlists", "common.txt")),
		RulesPath:      getEnvString("RULES_PATH", filepath.Join(dataDir, "rules", "best64.rule")),
		MaskLength:     getEnvInt("MASK_LENGTH", 6),
		IncrementMax:   getEnvInt("INCREMENT_MAX", 8),

		ExtractionTimeout: getEnvDuration("EXTRACTION_TIMEOUT", 30*time.Second),
		SniffContent:      getEnvBool("SNIFF_CONTENT", true),
		VerifyPasswords:   getEnvBool("VERIFY_PASSWORDS", true),
		Budgets: map[models.Profile]time.Duration{
			models.ProfileSimple:   getEnvDuration("BUDGET_SIMPLE", time.Hour),
			models.ProfileNormal:   getEnvDuration("BUDGET_NORMAL", 24*time.Hour),
			models.ProfileAdvanced: getEnvDuration("BUDGET_ADVANCED", 7*24*time.Hour),
		},

		Concurrency:    getEnvInt("WORKER_CONCURRENCY", 2),
		DatabaseDriver: strings.ToLower(getEnvString("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:    getEnvString("DATABASE_URL", filepath.Join(dataDir, "filecrack.db")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		QueueName:      getEnvString("QUEUE_NAME", "crack"),
		PollInterval:   getEnvDuration("POLL_INTERVAL", 5*time.Second),
		NotifyURL:      os.Getenv("NOTIFY_WS_URL"),

		JanitorSchedule: getEnvString("JANITOR_SCHEDULE", "@every 5m"),
		StaleTaskAfter:  getEnvDuration("STALE_TASK_AFTER", 8*24*time.Hour),

		TestMode: getEnvBool("TEST_MODE", false),
	}
	return cfg
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.DeviceMode != "cpu" && c.DeviceMode != "gpu" {
		return fmt.Errorf("invalid DEVICE_MODE %q: must be cpu or gpu", c.DeviceMode)
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("invalid DATABASE_DRIVER %q: must be sqlite or postgres", c.DatabaseDriver)
	}
	if c.ExtractionTimeout <= 0 {
		return fmt.Errorf("EXTRACTION_TIMEOUT must be positive")
	}
	if c.StatusTimer <= 0 {
		return fmt.Errorf("HASHCAT_STATUS_TIMER must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if c.MaskLength <= 0 || c.IncrementMax <= 0 {
		return fmt.Errorf("MASK_LENGTH and INCREMENT_MAX must be positive")
	}
	for p, b := range c.Budgets {
		if b <= 0 {
			return fmt.Errorf("budget for profile %s must be positive", p)
		}
	}
	return nil
}

// Budget returns the total time budget for profile.
func (c *Config) Budget(p models.Profile) time.Duration {
	if b, ok := c.Budgets[p]; ok {
		return b
	}
	return c.Budgets[models.ProfileNormal]
}

// getEnvDuration accepts Go duration strings ("90s", "24h") or bare seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(val); err == nil {
		return time.Duration(seconds) * time.Second
	}
	debug.Warning("Ignoring invalid duration %s=%q", key, val)
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		debug.Warning("Ignoring invalid integer %s=%q", key, val)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
