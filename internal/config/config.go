// Package config provides configuration management for the OFS client.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/ofs-tools/ofs-client/internal/constants"
)

// Config is the client configuration.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\ofs\ofs.ini
//   - Unix: ~/.config/ofs/ofs.ini
//
// INI format:
//
//	[server]
//	host = 127.0.0.1
//	port = 8080
//	timeout_seconds = 5
//
//	[proxy]
//	mode = none
//	address = 127.0.0.1:1080
//	username =
//	password =
//	no_proxy = localhost,127.0.0.1
//
//	[logging]
//	level = info
//	file =
//
//	[client]
//	username = admin
type Config struct {
	Server  ServerConfig
	Proxy   ProxyConfig
	Logging LoggingConfig
	Client  ClientConfig
}

// ServerConfig locates the OFS server.
type ServerConfig struct {
	Host string `ini:"host"`
	Port int    `ini:"port"`

	// TimeoutSeconds bounds a single call (connect, send, receive).
	// Default: 5
	TimeoutSeconds int `ini:"timeout_seconds"`
}

// ProxyConfig configures an optional SOCKS5 hop for the TCP connection.
type ProxyConfig struct {
	// Mode is "none" or "socks5".
	Mode     string `ini:"mode"`
	Address  string `ini:"address"`
	Username string `ini:"username"`
	Password string `ini:"password"`
	// NoProxy is a comma-separated list of hosts, domains or CIDRs dialed directly.
	NoProxy string `ini:"no_proxy"`
}

// LoggingConfig controls log level and the optional rotating log file.
type LoggingConfig struct {
	Level string `ini:"level"`
	File  string `ini:"file"`
}

// ClientConfig holds interactive defaults.
type ClientConfig struct {
	// Username pre-fills the login prompt.
	Username string `ini:"username"`
}

// Validation errors
var (
	ErrMissingHost      = errors.New("server host is required")
	ErrInvalidPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidTimeout   = errors.New("timeout_seconds must be positive")
	ErrInvalidProxyMode = errors.New("proxy mode must be none or socks5")
	ErrMissingProxyAddr = errors.New("proxy address is required when mode is socks5")
	ErrInvalidProxyAddr = errors.New("proxy address must be host:port")
	ErrInvalidLogLevel  = errors.New("logging level must be debug, info, warn or error")
)

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           constants.DefaultHost,
			Port:           constants.DefaultPort,
			TimeoutSeconds: int(constants.DefaultCallTimeout / time.Second),
		},
		Proxy: ProxyConfig{
			Mode: constants.ProxyModeNone,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Client: ClientConfig{
			Username: constants.LoginUsernameDefault,
		},
	}
}

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.ConfigFileName), nil
}

// Load reads configuration from an INI file. A missing file yields the
// defaults; a file that exists but cannot be parsed or holds invalid values
// is an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	server := iniFile.Section("server")
	cfg.Server.Host = server.Key("host").MustString(cfg.Server.Host)
	if cfg.Server.Port, err = intKey(server, "port", cfg.Server.Port); err != nil {
		return nil, err
	}
	if cfg.Server.TimeoutSeconds, err = intKey(server, "timeout_seconds", cfg.Server.TimeoutSeconds); err != nil {
		return nil, err
	}

	proxySection := iniFile.Section("proxy")
	cfg.Proxy.Mode = strings.ToLower(proxySection.Key("mode").MustString(cfg.Proxy.Mode))
	cfg.Proxy.Address = proxySection.Key("address").String()
	cfg.Proxy.Username = proxySection.Key("username").String()
	cfg.Proxy.Password = proxySection.Key("password").String()
	cfg.Proxy.NoProxy = proxySection.Key("no_proxy").String()

	logSection := iniFile.Section("logging")
	cfg.Logging.Level = strings.ToLower(logSection.Key("level").MustString(cfg.Logging.Level))
	cfg.Logging.File = logSection.Key("file").String()

	cfg.Client.Username = iniFile.Section("client").Key("username").MustString(cfg.Client.Username)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// intKey parses an integer key, keeping def when the key is absent or empty.
func intKey(section *ini.Section, name string, def int) (int, error) {
	if !section.HasKey(name) || strings.TrimSpace(section.Key(name).String()) == "" {
		return def, nil
	}
	v, err := section.Key(name).Int()
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: %w", section.Name(), name, err)
	}
	return v, nil
}

// Save writes configuration to an INI file, creating parent directories.
// The proxy password is stored in the file, so it is written 0600.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	server, err := iniFile.NewSection("server")
	if err != nil {
		return fmt.Errorf("failed to create server section: %w", err)
	}
	server.Key("host").SetValue(cfg.Server.Host)
	server.Key("port").SetValue(strconv.Itoa(cfg.Server.Port))
	server.Key("timeout_seconds").SetValue(strconv.Itoa(cfg.Server.TimeoutSeconds))

	proxySection, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxySection.Key("mode").SetValue(cfg.Proxy.Mode)
	proxySection.Key("address").SetValue(cfg.Proxy.Address)
	proxySection.Key("username").SetValue(cfg.Proxy.Username)
	proxySection.Key("password").SetValue(cfg.Proxy.Password)
	proxySection.Key("no_proxy").SetValue(cfg.Proxy.NoProxy)

	logSection, err := iniFile.NewSection("logging")
	if err != nil {
		return fmt.Errorf("failed to create logging section: %w", err)
	}
	logSection.Key("level").SetValue(cfg.Logging.Level)
	logSection.Key("file").SetValue(cfg.Logging.File)

	client, err := iniFile.NewSection("client")
	if err != nil {
		return fmt.Errorf("failed to create client section: %w", err)
	}
	client.Key("username").SetValue(cfg.Client.Username)

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks the configuration. Any error here is fatal to the process.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Server.Host) == "" {
		return ErrMissingHost
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if cfg.Server.TimeoutSeconds <= 0 {
		return ErrInvalidTimeout
	}

	switch cfg.Proxy.Mode {
	case "", constants.ProxyModeNone:
	case constants.ProxyModeSOCKS5:
		if strings.TrimSpace(cfg.Proxy.Address) == "" {
			return ErrMissingProxyAddr
		}
		if _, _, err := net.SplitHostPort(cfg.Proxy.Address); err != nil {
			return ErrInvalidProxyAddr
		}
	default:
		return ErrInvalidProxyMode
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// Address returns the server endpoint as host:port.
func (cfg *Config) Address() string {
	return net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
}

// Timeout returns the per-call timeout, capped at constants.MaxCallTimeout.
func (cfg *Config) Timeout() time.Duration {
	d := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	if d <= 0 {
		return constants.DefaultCallTimeout
	}
	if d > constants.MaxCallTimeout {
		return constants.MaxCallTimeout
	}
	return d
}

// ProxyEnabled reports whether calls go through a SOCKS5 proxy.
func (cfg *Config) ProxyEnabled() bool {
	return cfg.Proxy.Mode == constants.ProxyModeSOCKS5
}
