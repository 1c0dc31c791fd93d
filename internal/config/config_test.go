package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretRedaction(t *testing.T) {
	s := Secret("super-secret-value")
	assert.Equal(t, "***", s.String())
	assert.Equal(t, "", Secret("").String())

	out, err := json.Marshal(struct {
		Secret Secret `json:"secret"`
	}{Secret: s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"secret":"***"}`, string(out))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8787", cfg.Addr)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.False(t, cfg.Production)
	assert.Equal(t, DefaultBaseURL+"/auth/callback", cfg.RedirectURI())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("AUTHFRONT_GOOGLE_CLIENT_ID", "env-client-id")
	t.Setenv("AUTHFRONT_GOOGLE_CLIENT_SECRET", "env-client-secret")
	t.Setenv("AUTHFRONT_SHARED_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTHFRONT_BASE_URL", "https://app.example.com")
	t.Setenv("AUTHFRONT_VALKEY_ADDR", "127.0.0.1:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-client-id", cfg.GoogleClientID)
	assert.Equal(t, Secret("env-client-secret"), cfg.GoogleClientSecret)
	assert.Equal(t, "https://app.example.com", cfg.BaseURL)
	assert.Equal(t, "127.0.0.1:6379", cfg.ValkeyAddr)
	assert.Equal(t, "https://app.example.com/auth/callback", cfg.RedirectURI())
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"base_url: https://file.example.com\ngoogle_client_id: file-client-id\n",
	), 0o600))

	t.Setenv("AUTHFRONT_GOOGLE_CLIENT_ID", "env-wins")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.BaseURL)
	assert.Equal(t, "env-wins", cfg.GoogleClientID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("short shared secret rejected", func(t *testing.T) {
		cfg := &Config{Addr: ":8787", BaseURL: DefaultBaseURL, SharedSecret: "short"}
		assert.Error(t, Validate(cfg))
	})

	t.Run("absent shared secret tolerated at load time", func(t *testing.T) {
		// Handlers answer 500 per-request; load must not crash-loop.
		cfg := &Config{Addr: ":8787", BaseURL: DefaultBaseURL}
		assert.NoError(t, Validate(cfg))
	})

	t.Run("relative base URL rejected", func(t *testing.T) {
		cfg := &Config{Addr: ":8787", BaseURL: "not-a-url"}
		assert.Error(t, Validate(cfg))
	})

	t.Run("production requires https", func(t *testing.T) {
		cfg := &Config{Addr: ":8787", BaseURL: "http://plain.example.com", Production: true}
		assert.Error(t, Validate(cfg))

		cfg.BaseURL = "https://app.example.com"
		assert.NoError(t, Validate(cfg))
	})
}
