package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty,
// uses DefaultConfigPath. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("manifest.path", cfg.Manifest.Path)
	v.SetDefault("router.settle_delay_ms", cfg.Router.SettleDelayMS)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("browser.endpoint", cfg.Browser.Endpoint)
	v.SetDefault("browser.exec_path", cfg.Browser.ExecPath)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("backend.base_url", cfg.Backend.BaseURL)
	v.SetDefault("backend.timeout_seconds", cfg.Backend.TimeoutSeconds)
	v.SetDefault("identity.auth_url", cfg.Identity.AuthURL)
	v.SetDefault("identity.token_url", cfg.Identity.TokenURL)
	v.SetDefault("identity.client_id", cfg.Identity.ClientID)
	v.SetDefault("identity.redirect_url", cfg.Identity.RedirectURL)
	v.SetDefault("identity.scopes", cfg.Identity.Scopes)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateURL("backend.base_url", cfg.Backend.BaseURL); err != nil {
		return Config{}, err
	}
	if err := validateURL("identity.auth_url", cfg.Identity.AuthURL); err != nil {
		return Config{}, err
	}
	if err := validateURL("identity.token_url", cfg.Identity.TokenURL); err != nil {
		return Config{}, err
	}
	if cfg.Router.SettleDelayMS < 0 {
		return Config{}, fmt.Errorf("router.settle_delay_ms must not be negative")
	}
	return cfg, nil
}

func validateURL(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must include scheme and host (e.g. https://example.com)", field)
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Manifest.Path = expandEnv(cfg.Manifest.Path)
	cfg.Browser.Endpoint = expandEnv(cfg.Browser.Endpoint)
	cfg.Browser.ExecPath = expandEnv(cfg.Browser.ExecPath)
	cfg.Backend.BaseURL = expandEnv(cfg.Backend.BaseURL)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
