package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultAPIURL         = "http://localhost:3000/api"
	DefaultChannel        = "development"
	DefaultRuntimeVersion = "1.0.0"

	configFileName = "config.json"
	tokenFileName  = "token"
)

// Config holds the CLI's persistent per-user settings.
type Config struct {
	APIURL                string `json:"apiUrl" yaml:"apiUrl"`
	CurrentApp            string `json:"currentApp,omitempty" yaml:"currentApp,omitempty"`
	DefaultChannel        string `json:"defaultChannel,omitempty" yaml:"defaultChannel,omitempty"`
	DefaultRuntimeVersion string `json:"defaultRuntimeVersion,omitempty" yaml:"defaultRuntimeVersion,omitempty"`
	GithubClientID        string `json:"githubClientId,omitempty" yaml:"githubClientId,omitempty"`
	GithubOAuthRedirect   string `json:"githubOauthRedirect,omitempty" yaml:"githubOauthRedirect,omitempty"`
}

// Defaults returns the configuration written on first use.
func Defaults() *Config {
	return &Config{
		APIURL:                DefaultAPIURL,
		DefaultChannel:        DefaultChannel,
		DefaultRuntimeVersion: DefaultRuntimeVersion,
	}
}

// Channel returns the default release channel, falling back to development.
func (c *Config) Channel() string {
	if c.DefaultChannel == "" {
		return DefaultChannel
	}
	return c.DefaultChannel
}

// RuntimeVersion returns the default runtime version, falling back to 1.0.0.
func (c *Config) RuntimeVersion() string {
	if c.DefaultRuntimeVersion == "" {
		return DefaultRuntimeVersion
	}
	return c.DefaultRuntimeVersion
}

// Store reads and writes the config and token files under a single directory.
// Concurrent writers are not coordinated; the last write wins.
type Store struct {
	Dir    string
	Logger *zap.Logger
}

// DefaultDir returns the default config directory (~/.openexpoota).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".openexpoota")
}

// NewStore returns a store rooted at dir. An empty dir means DefaultDir.
func NewStore(dir string, logger *zap.Logger) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{Dir: dir, Logger: logger}
}

func (s *Store) configPath() string { return filepath.Join(s.Dir, configFileName) }
func (s *Store) tokenPath() string  { return filepath.Join(s.Dir, tokenFileName) }

// Load reads the config from disk. On first use the defaults are persisted and
// returned. A file that cannot be parsed is ignored in favor of the defaults.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.configPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg := Defaults()
		if err := s.Save(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.Logger.Warn("config file is not valid JSON, using defaults",
			zap.String("path", s.configPath()), zap.Error(err))
		return Defaults(), nil
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return &cfg, nil
}

// Save writes the config to disk.
func (s *Store) Save(cfg *Config) error {
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(s.configPath(), data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadToken returns the saved bearer token, or "" when none is stored.
func (s *Store) LoadToken() (string, error) {
	data, err := os.ReadFile(s.tokenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveToken persists the raw bearer token.
func (s *Store) SaveToken(token string) error {
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(s.tokenPath(), []byte(token), 0600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// ClearToken removes the saved token. Removing a missing token is not an error.
func (s *Store) ClearToken() error {
	if err := os.Remove(s.tokenPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
