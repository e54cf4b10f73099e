// Package config loads runtime configuration from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"

	defaultPostgresHost   = "localhost"
	defaultPostgresPort   = "5432"
	defaultPostgresDB     = "stridelake"
	defaultPostgresUser   = "postgres"
	defaultOllamaURL      = "http://localhost:11434"
	defaultAuthResultURL  = "http://localhost:3000/new-athlete-result"
	defaultCORSOrigin     = "http://localhost:3000"
	defaultTAGMaxAttempts = 5
	defaultSyncConcurrent = 10
)

type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string

	LLMProvider     string
	AnthropicAPIKey string
	LLMModel        string
	OllamaURL       string

	StravaClientID     string
	StravaClientSecret string
	StravaRedirectURI  string
	AuthResultURL      string

	CORSAllowedOrigins []string

	TAGMaxAttempts  int
	SyncConcurrency int
}

// Load reads the given .env files (default ".env") into the process environment without
// overriding variables that are already set, then builds a Config from the environment.
// Missing .env files are not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		PostgresHost:       getenv("POSTGRES_HOST", defaultPostgresHost),
		PostgresPort:       getenv("POSTGRES_PORT", defaultPostgresPort),
		PostgresDB:         getenv("POSTGRES_DB", defaultPostgresDB),
		PostgresUser:       getenv("POSTGRES_USER", defaultPostgresUser),
		PostgresPassword:   os.Getenv("POSTGRES_PASSWORD"),
		LLMProvider:        strings.ToLower(getenv("LLM_PROVIDER", ProviderAnthropic)),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		LLMModel:           os.Getenv("LLM_MODEL"),
		OllamaURL:          getenv("OLLAMA_URL", defaultOllamaURL),
		StravaClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		StravaClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
		StravaRedirectURI:  os.Getenv("STRAVA_REDIRECT_URI"),
		AuthResultURL:      getenv("AUTH_RESULT_URL", defaultAuthResultURL),
		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", defaultCORSOrigin)),
	}

	var err error
	if cfg.TAGMaxAttempts, err = getenvInt("TAG_MAX_ATTEMPTS", defaultTAGMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.SyncConcurrency, err = getenvInt("SYNC_CONCURRENCY", defaultSyncConcurrent); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderAnthropic, ProviderOllama:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q (want %s or %s)", c.LLMProvider, ProviderAnthropic, ProviderOllama)
	}
	if c.TAGMaxAttempts <= 0 {
		return errors.New("TAG_MAX_ATTEMPTS must be positive")
	}
	if c.SyncConcurrency <= 0 {
		return errors.New("SYNC_CONCURRENCY must be positive")
	}
	return nil
}

// StravaConfigured reports whether OAuth credentials are present.
func (c *Config) StravaConfigured() bool {
	return c.StravaClientID != "" && c.StravaClientSecret != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
