package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ConfigKeys lists the settings that can be read and written by name.
var ConfigKeys = []string{"api_url", "socket_url", "page_size", "alerts"}

// LoadFileConfig returns the defaults overlaid with dataDir's config file,
// without environment overrides. Use it to edit the file.
func LoadFileConfig(dataDir string) (Config, error) {
	cfg := DefaultConfig()
	if err := readConfigFile(ConfigPath(dataDir), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NormalizeConfigKey accepts dashed and dotted spellings of a key.
func NormalizeConfigKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, "-", "_")
	return strings.ReplaceAll(key, ".", "_")
}

// Get returns the named setting as a string.
func (c Config) Get(key string) (string, error) {
	switch NormalizeConfigKey(key) {
	case "api_url":
		return c.APIURL, nil
	case "socket_url":
		return c.SocketURL, nil
	case "page_size":
		return strconv.Itoa(c.PageSize), nil
	case "alerts":
		return strconv.FormatBool(c.Alerts), nil
	}
	return "", fmt.Errorf("unknown config key %q (want one of %s)", key, strings.Join(ConfigKeys, ", "))
}

// Set parses value into the named setting.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch NormalizeConfigKey(key) {
	case "api_url":
		if _, err := SocketURLFor(value); err != nil {
			return err
		}
		c.APIURL = strings.TrimRight(value, "/")
	case "socket_url":
		c.SocketURL = value
	case "page_size":
		size, err := strconv.Atoi(value)
		if err != nil || size <= 0 {
			return fmt.Errorf("page_size must be a positive number, got %q", value)
		}
		c.PageSize = size
	case "alerts":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("alerts must be true or false, got %q", value)
		}
		c.Alerts = enabled
	default:
		return fmt.Errorf("unknown config key %q (want one of %s)", key, strings.Join(ConfigKeys, ", "))
	}
	return nil
}
