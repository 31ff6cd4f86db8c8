package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// ConfigFileName is the name of the config file inside the data dir.
const ConfigFileName = "config.json"

const (
	DefaultAPIURL       = "http://localhost:5000/api"
	DefaultPageSize     = 20
	DefaultReconnectMax = 30 * time.Second
)

// Config holds client settings. Values come from defaults, then
// <data dir>/config.json, then the environment (optionally seeded from a
// .env file).
type Config struct {
	APIURL       string        `json:"api_url,omitempty" env:"SOCIALDASH_API_URL"`
	SocketURL    string        `json:"socket_url,omitempty" env:"SOCIALDASH_SOCKET_URL"`
	PageSize     int           `json:"page_size,omitempty" env:"SOCIALDASH_PAGE_SIZE"`
	Alerts       bool          `json:"alerts" env:"SOCIALDASH_ALERTS"`
	ReconnectMax time.Duration `json:"-" env:"SOCIALDASH_RECONNECT_MAX"`
	DataDir      string        `json:"-" env:"SOCIALDASH_DATA_DIR"`
}

// LoadOptions control where configuration is read from.
type LoadOptions struct {
	// EnvFile is loaded into the environment before parsing when it
	// exists. Defaults to ".env"; set to "-" to skip.
	EnvFile string
	// DataDir overrides the data directory (for example from a flag).
	DataDir string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		APIURL:       DefaultAPIURL,
		PageSize:     DefaultPageSize,
		Alerts:       true,
		ReconnectMax: DefaultReconnectMax,
	}
}

// DefaultDataDir returns ~/.config/socialdash.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "socialdash"), nil
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// LoadConfig resolves the effective configuration.
func LoadConfig(opts LoadOptions) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if envFile != "-" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	dataDir, err := resolveDataDir(opts.DataDir)
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if err := readConfigFile(ConfigPath(dataDir), &cfg); err != nil {
		return Config{}, err
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.DataDir = dataDir

	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveDataDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	var fromEnv struct {
		DataDir string `env:"SOCIALDASH_DATA_DIR"`
	}
	if err := env.Parse(&fromEnv); err != nil {
		return "", fmt.Errorf("parse environment: %w", err)
	}
	if fromEnv.DataDir != "" {
		return fromEnv.DataDir, nil
	}
	return DefaultDataDir()
}

func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) finalize() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = DefaultReconnectMax
	}
	if c.SocketURL == "" {
		socketURL, err := SocketURLFor(c.APIURL)
		if err != nil {
			return err
		}
		c.SocketURL = socketURL
	}
	return nil
}

// SocketURLFor derives the live channel URL from the REST base URL:
// http://host/api becomes ws://host/ws.
func SocketURLFor(apiURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("api url must use http or https, got %q", apiURL)
	}
	path := strings.TrimRight(parsed.Path, "/")
	path = strings.TrimSuffix(path, "/api")
	parsed.Path = path + "/ws"
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}

// WriteConfig persists the file-backed settings of cfg into dataDir.
func WriteConfig(dataDir string, cfg Config) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(ConfigPath(dataDir), data, 0o644)
}
