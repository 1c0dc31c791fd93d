package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultBaseURL is the local-development fallback for the application base URL.
const DefaultBaseURL = "http://localhost:8787"

// MinSecretLen is the minimum length of the shared signing/encryption secret.
// The first 32 bytes are used as the AES-256 key for transaction state.
const MinSecretLen = 32

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// Config holds the service configuration.
//
// Missing OAuth secrets are not a load error: the auth handlers answer 500
// when they are absent so a misdeployment is loud per-request rather than a
// silent crash loop. A present-but-short shared secret is rejected here
// because it can never be valid.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `koanf:"addr"`

	// BaseURL is the externally visible base URL of the application. The
	// OAuth redirect URI is derived from it and must match what the
	// provider has registered.
	BaseURL string `koanf:"base_url"`

	// Production controls the Secure attribute on cookies.
	Production bool `koanf:"production"`

	GoogleClientID     string `koanf:"google_client_id"`
	GoogleClientSecret Secret `koanf:"google_client_secret"`

	// SharedSecret signs session tokens and encrypts transaction state.
	// Must be at least MinSecretLen bytes.
	SharedSecret Secret `koanf:"shared_secret"`

	// ValkeyAddr is the rate-limit counter store address. Empty disables
	// rate limiting entirely (fail-open).
	ValkeyAddr string `koanf:"valkey_addr"`

	// AllowedOrigins restricts CORS. Empty allows none beyond same-origin.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// RedirectURI returns the OAuth callback URL registered with the provider.
func (c *Config) RedirectURI() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/auth/callback"
}

// Load builds the configuration from an optional YAML file and AUTHFRONT_*
// environment variables. Environment variables win over the file, e.g.
// AUTHFRONT_GOOGLE_CLIENT_ID maps to google_client_id.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("AUTHFRONT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "AUTHFRONT_"))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Config{
		Addr:    ":8787",
		BaseURL: DefaultBaseURL,
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that can never work.
func Validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q is not an absolute URL", cfg.BaseURL)
	}
	if cfg.SharedSecret != "" && len(cfg.SharedSecret) < MinSecretLen {
		return fmt.Errorf("shared_secret must be at least %d bytes, got %d", MinSecretLen, len(cfg.SharedSecret))
	}
	if cfg.Production && u.Scheme != "https" {
		return fmt.Errorf("base_url must be https in production")
	}
	return nil
}
