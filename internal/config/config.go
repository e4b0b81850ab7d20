package config

import (
	"fmt"
	"net"
	"strconv"
)

type Config struct {
	Server  ServerConfig
	Content ContentConfig
	Storage StorageConfig
	Editor  EditorConfig
	Site    SiteConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BaseURL is the address clients on this machine use to reach the server.
func (s ServerConfig) BaseURL() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.Port))
}

// ContentConfig locates the published documents. Empty sources mean the
// default file name inside DataDir.
type ContentConfig struct {
	DataDir     string
	WorksSource string
	BlogSource  string
}

type StorageConfig struct {
	DataDir string
}

type EditorConfig struct {
	Enabled bool
	SaveURL string
}

type SiteConfig struct {
	File string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 4000,
		},
		Content: ContentConfig{
			DataDir: "data",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Editor: EditorConfig{
			Enabled: true,
		},
		Site: SiteConfig{
			File: "site.yaml",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the YAML config file and environment
// variables.
//
// The file lives at $XDG_CONFIG_HOME/folio/config.yaml unless FOLIO_CONFIG
// names another path. Environment variables (FOLIO_*) override file values.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid config: server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Content.DataDir == "" {
		return Config{}, fmt.Errorf("invalid config: content.data_dir is empty. Set it via FOLIO_CONTENT_DATA_DIR")
	}

	return cfg, nil
}

// SaveURL is the endpoint the editor persists to.
func (c Config) SaveURL() string {
	if c.Editor.SaveURL != "" {
		return c.Editor.SaveURL
	}
	return c.Server.BaseURL() + "/api/save"
}
