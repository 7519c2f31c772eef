package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesHardcodedBaseline(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.RQC.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.RQC.RequestTimeout)
	assert.Equal(t, 8, cfg.RQC.MaxWorkers)
	assert.Equal(t, 3, cfg.FileUpload.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Agent.RequestTimeout)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("STKAI_RQC_REQUEST_TIMEOUT", "45")
	t.Setenv("STKAI_RQC_MAX_RETRIES", "5")
	t.Setenv("STKAI_RQC_BACKOFF_FACTOR", "1.5")
	t.Setenv("STKAI_AGENT_BASE_URL", "https://agent.example.com")
	t.Setenv("STKAI_CLIENT_ID", "client-123")

	cfg := Load()

	assert.Equal(t, 45*time.Second, cfg.RQC.RequestTimeout)
	assert.Equal(t, 5, cfg.RQC.MaxRetries)
	assert.Equal(t, 1.5, cfg.RQC.BackoffFactor)
	assert.Equal(t, "https://agent.example.com", cfg.Agent.BaseURL)
	assert.Equal(t, "client-123", cfg.Auth.ClientID)
}

func TestLoad_IgnoresUnparsableEnvValue(t *testing.T) {
	t.Setenv("STKAI_RQC_MAX_RETRIES", "not-a-number")

	cfg := Load()

	assert.Equal(t, Default().RQC.MaxRetries, cfg.RQC.MaxRetries)
}

func TestConfigure_ReplacesCurrentWholesale(t *testing.T) {
	original := Current()
	defer Configure(original)

	replacement := Default()
	replacement.RQC.MaxWorkers = 99
	Configure(replacement)

	require.Equal(t, 99, Current().RQC.MaxWorkers)
}

func TestDurationEnv_AbsentReturnsFalse(t *testing.T) {
	os.Unsetenv("STKAI_DOES_NOT_EXIST")

	_, ok := durationEnv("STKAI_DOES_NOT_EXIST")

	assert.False(t, ok)
}
