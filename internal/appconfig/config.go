package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string         `mapstructure:"state_dir" yaml:"state_dir"`
	Manifest      ManifestConfig `mapstructure:"manifest" yaml:"manifest"`
	Router        RouterConfig   `mapstructure:"router" yaml:"router"`
	HTTP          HTTPConfig     `mapstructure:"http" yaml:"http"`
	Browser       BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Backend       BackendConfig  `mapstructure:"backend" yaml:"backend"`
	Identity      IdentityConfig `mapstructure:"identity" yaml:"identity"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// ManifestConfig locates the extension manifest used for content-script
// injection.
type ManifestConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// RouterConfig tunes coordinator behavior.
type RouterConfig struct {
	SettleDelayMS int `mapstructure:"settle_delay_ms" yaml:"settle_delay_ms"`
}

// HTTPConfig configures the coordinator's message endpoint.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// BrowserConfig configures the browser attachment.
type BrowserConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	ExecPath string `mapstructure:"exec_path" yaml:"exec_path"`
	Headless bool   `mapstructure:"headless" yaml:"headless"`
}

// BackendConfig configures the note backend client.
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// IdentityConfig configures the identity provider used for login and
// token refresh.
type IdentityConfig struct {
	AuthURL     string   `mapstructure:"auth_url" yaml:"auth_url"`
	TokenURL    string   `mapstructure:"token_url" yaml:"token_url"`
	ClientID    string   `mapstructure:"client_id" yaml:"client_id"`
	RedirectURL string   `mapstructure:"redirect_url" yaml:"redirect_url"`
	Scopes      []string `mapstructure:"scopes" yaml:"scopes"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".webclip", "state"),
		Manifest: ManifestConfig{
			Path: filepath.Join(home, ".webclip", "extension", "manifest.json"),
		},
		Router: RouterConfig{
			SettleDelayMS: 500,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:27490",
		},
		Browser: BrowserConfig{
			Endpoint: "",
			ExecPath: "",
			Headless: false,
		},
		Backend: BackendConfig{
			BaseURL:        "https://api.webclip.example",
			TimeoutSeconds: 30,
		},
		Identity: IdentityConfig{
			AuthURL:     "https://id.webclip.example/oauth/authorize",
			TokenURL:    "https://id.webclip.example/oauth/token",
			ClientID:    "webclip-desktop",
			RedirectURL: "http://127.0.0.1:27491/callback",
			Scopes:      []string{"notes:write", "offline_access"},
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".webclip", "config.yaml"), nil
}
