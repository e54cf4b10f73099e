package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DB", "POSTGRES_USER", "POSTGRES_PASSWORD",
	"LLM_PROVIDER", "ANTHROPIC_API_KEY", "LLM_MODEL", "OLLAMA_URL",
	"STRAVA_CLIENT_ID", "STRAVA_CLIENT_SECRET", "STRAVA_REDIRECT_URI", "AUTH_RESULT_URL",
	"CORS_ALLOWED_ORIGINS", "TAG_MAX_ATTEMPTS", "SYNC_CONCURRENCY",
}

// clearEnv blanks every variable the package reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.PostgresHost)
	assert.Equal(t, "5432", cfg.PostgresPort)
	assert.Equal(t, "stridelake", cfg.PostgresDB)
	assert.Equal(t, "postgres", cfg.PostgresUser)
	assert.Equal(t, ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 5, cfg.TAGMaxAttempts)
	assert.Equal(t, 10, cfg.SyncConcurrency)
	assert.False(t, cfg.StravaConfigured())
}

func TestConfig_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"POSTGRES_HOST=db\n"+
			"LLM_PROVIDER=Ollama\n"+
			"STRAVA_CLIENT_ID=1234\n"+
			"STRAVA_CLIENT_SECRET=shh\n"+
			"CORS_ALLOWED_ORIGINS=http://a.example, http://b.example ,\n"+
			"TAG_MAX_ATTEMPTS=3\n",
	), 0o600))
	t.Setenv("POSTGRES_HOST", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.PostgresHost)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.True(t, cfg.StravaConfigured())
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 3, cfg.TAGMaxAttempts)
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"unknown provider", "LLM_PROVIDER", "openai", `unsupported LLM_PROVIDER "openai"`},
		{"non-numeric attempts", "TAG_MAX_ATTEMPTS", "five", "invalid TAG_MAX_ATTEMPTS"},
		{"zero attempts", "TAG_MAX_ATTEMPTS", "0", "TAG_MAX_ATTEMPTS must be positive"},
		{"negative concurrency", "SYNC_CONCURRENCY", "-1", "SYNC_CONCURRENCY must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
