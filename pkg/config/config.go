// Package config holds the frozen, process-wide configuration record:
// built once from defaults plus STKAI_* environment variables, safe for
// concurrent reads thereafter. Later Configure calls replace the record
// wholesale under a single exclusive region — components are expected to
// capture the values they need at construction time rather than
// re-reading the record on every call.
package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rafaelpontezup/stkai-go/pkg/ratelimit"
	"github.com/rafaelpontezup/stkai-go/pkg/retry"
)

// RQCConfig holds per-surface defaults for the remote-quick-command
// submit-and-poll product surface.
type RQCConfig struct {
	RequestTimeout  time.Duration
	MaxRetries      int
	BackoffFactor   float64
	PollInterval    time.Duration
	PollMaxDuration time.Duration
	MaxWorkers      int
}

// AgentConfig holds defaults for the agent product surface.
type AgentConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// FileUploadConfig holds defaults for the two-step presigned upload
// product surface.
type FileUploadConfig struct {
	RequestTimeout time.Duration
	MaxRetries     int
	MaxWorkers     int
}

// AuthConfig holds self-authenticating transport credentials.
type AuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Config is the complete process-wide configuration record.
type Config struct {
	RateLimit  ratelimit.Config
	Retry      retry.Config
	RQC        RQCConfig
	Agent      AgentConfig
	FileUpload FileUploadConfig
	Auth       AuthConfig
}

// Default returns the hardcoded baseline configuration, used as the
// starting point before environment overrides are applied.
func Default() Config {
	return Config{
		RateLimit: ratelimit.Balanced(40),
		Retry:     retry.DefaultConfig(),
		RQC: RQCConfig{
			RequestTimeout:  30 * time.Second,
			MaxRetries:      3,
			BackoffFactor:   2.0,
			PollInterval:    2 * time.Second,
			PollMaxDuration: 5 * time.Minute,
			MaxWorkers:      8,
		},
		Agent: AgentConfig{
			RequestTimeout: 30 * time.Second,
		},
		FileUpload: FileUploadConfig{
			RequestTimeout: 60 * time.Second,
			MaxRetries:     3,
			MaxWorkers:     8,
		},
	}
}

var (
	mu      sync.RWMutex
	current Config
)

func init() {
	current = Load()
}

// Load builds a Config from Default() overridden by any STKAI_* env
// vars present in the process environment.
func Load() Config {
	cfg := Default()

	if v, ok := durationEnv("STKAI_RQC_REQUEST_TIMEOUT"); ok {
		cfg.RQC.RequestTimeout = v
	}
	if v, ok := intEnv("STKAI_RQC_MAX_RETRIES"); ok {
		cfg.RQC.MaxRetries = v
	}
	if v, ok := floatEnv("STKAI_RQC_BACKOFF_FACTOR"); ok {
		cfg.RQC.BackoffFactor = v
	}
	if v, ok := durationEnv("STKAI_RQC_POLL_INTERVAL"); ok {
		cfg.RQC.PollInterval = v
	}
	if v, ok := durationEnv("STKAI_RQC_POLL_MAX_DURATION"); ok {
		cfg.RQC.PollMaxDuration = v
	}
	if v, ok := intEnv("STKAI_RQC_MAX_WORKERS"); ok {
		cfg.RQC.MaxWorkers = v
	}

	if v, ok := os.LookupEnv("STKAI_AGENT_BASE_URL"); ok {
		cfg.Agent.BaseURL = v
	}
	if v, ok := durationEnv("STKAI_AGENT_REQUEST_TIMEOUT"); ok {
		cfg.Agent.RequestTimeout = v
	}

	if v, ok := os.LookupEnv("STKAI_CLIENT_ID"); ok {
		cfg.Auth.ClientID = v
	}
	if v, ok := os.LookupEnv("STKAI_CLIENT_SECRET"); ok {
		cfg.Auth.ClientSecret = v
	}
	if v, ok := os.LookupEnv("STKAI_AUTH_TOKEN_URL"); ok {
		cfg.Auth.TokenURL = v
	}

	if v, ok := durationEnv("STKAI_FILE_UPLOAD_REQUEST_TIMEOUT"); ok {
		cfg.FileUpload.RequestTimeout = v
	}
	if v, ok := intEnv("STKAI_FILE_UPLOAD_MAX_RETRIES"); ok {
		cfg.FileUpload.MaxRetries = v
	}
	if v, ok := intEnv("STKAI_FILE_UPLOAD_MAX_WORKERS"); ok {
		cfg.FileUpload.MaxWorkers = v
	}

	return cfg
}

// Current returns the process-wide configuration record currently in
// effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Configure replaces the process-wide configuration record wholesale,
// under a single exclusive region. Existing components that captured
// values at construction are unaffected; only components that call
// Current() afterward observe the change.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	current = cfg
}

func durationEnv(key string) (time.Duration, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func intEnv(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func floatEnv(key string) (float64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
