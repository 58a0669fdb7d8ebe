// Package config loads SDK configuration from environment variables and
// optional .env files.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds engine configuration loaded from the environment.
type Config struct {
	AppEnv string
	// ChallengeTimeout is the shared default for both challenge channels;
	// the per-channel values override it independently.
	ChallengeTimeout   time.Duration
	AttestationTimeout time.Duration
	CaptchaTimeout     time.Duration
	HCaptchaSiteKey    string
	AttestationEnabled bool
	LogLevel           string
	LogFormat          string
	Debug              bool
	MetricsNamespace   string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	shared := parseDuration(k.String("PAYFLOW_CHALLENGE_TIMEOUT"), "6s")
	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("PAYFLOW_ENV"), "development"),
		ChallengeTimeout:   shared,
		AttestationTimeout: parseDurationOr(k.String("PAYFLOW_ATTESTATION_TIMEOUT"), shared),
		CaptchaTimeout:     parseDurationOr(k.String("PAYFLOW_CAPTCHA_TIMEOUT"), shared),
		HCaptchaSiteKey:    strings.TrimSpace(k.String("PAYFLOW_HCAPTCHA_SITE_KEY")),
		AttestationEnabled: parseBool(valueOrDefault(k.String("PAYFLOW_ATTESTATION_ENABLED"), "true")),
		LogLevel:           valueOrDefault(k.String("PAYFLOW_LOG_LEVEL"), "info"),
		LogFormat:          valueOrDefault(k.String("PAYFLOW_LOG_FORMAT"), "json"),
		Debug:              parseBool(k.String("PAYFLOW_DEBUG")),
		MetricsNamespace:   valueOrDefault(k.String("PAYFLOW_METRICS_NAMESPACE"), "payflow"),
	}

	return cfg, nil
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(envs map[string]string) (*Config, error) {
	original := make(map[string]string, len(envs))
	for key := range envs {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, envs[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		return fallback
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
