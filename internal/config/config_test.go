package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("expected default timeout 5s, got %v", cfg.Timeout())
	}
	if cfg.ProxyEnabled() {
		t.Error("expected proxy to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ofs.ini")

	cfg := NewConfig()
	cfg.Server.Host = "ofs.example.com"
	cfg.Server.Port = 9000
	cfg.Server.TimeoutSeconds = 12
	cfg.Proxy = ProxyConfig{
		Mode:     "socks5",
		Address:  "127.0.0.1:1080",
		Username: "proxyuser",
		Password: "proxypass",
		NoProxy:  "localhost,10.0.0.0/8",
	}
	cfg.Logging.Level = "debug"
	cfg.Logging.File = "client.log"
	cfg.Client.Username = "alice"

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if info.Mode().Perm()&0077 != 0 && os.PathSeparator == '/' {
		t.Errorf("config file should not be group/world accessible, mode %v", info.Mode().Perm())
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded config mismatch:\n got %+v\nwant %+v", *loaded, *cfg)
	}
	if loaded.Address() != "ofs.example.com:9000" {
		t.Errorf("Address() = %s", loaded.Address())
	}
	if loaded.Timeout() != 12*time.Second {
		t.Errorf("Timeout() = %v", loaded.Timeout())
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected defaults, got port %d", cfg.Server.Port)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "ofs.ini")
	content := "[server]\nhost = 10.1.2.3\n"
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Host != "10.1.2.3" {
		t.Errorf("expected host from file, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 || cfg.Server.TimeoutSeconds != 5 {
		t.Errorf("expected default port/timeout, got %d/%d", cfg.Server.Port, cfg.Server.TimeoutSeconds)
	}
	if cfg.Client.Username != "admin" {
		t.Errorf("expected default username admin, got %s", cfg.Client.Username)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"port not a number", "[server]\nport = abc\n", nil},
		{"port out of range", "[server]\nport = 70000\n", ErrInvalidPort},
		{"zero timeout", "[server]\ntimeout_seconds = 0\n", ErrInvalidTimeout},
		{"unknown proxy mode", "[proxy]\nmode = ntlm\n", ErrInvalidProxyMode},
		{"socks5 without address", "[proxy]\nmode = socks5\n", ErrMissingProxyAddr},
		{"socks5 bad address", "[proxy]\nmode = socks5\naddress = nohostport\n", ErrInvalidProxyAddr},
		{"bad log level", "[logging]\nlevel = chatty\n", ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "ofs.ini")
			if err := os.WriteFile(configPath, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(configPath)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTimeoutCapped(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.TimeoutSeconds = 100000
	if cfg.Timeout() != 5*time.Minute {
		t.Errorf("expected timeout capped at 5m, got %v", cfg.Timeout())
	}
}

func TestLogFilePath(t *testing.T) {
	cfg := NewConfig()
	if got := LogFilePath(cfg); got != "" {
		t.Errorf("expected empty path when file logging is off, got %q", got)
	}

	abs := filepath.Join(t.TempDir(), "x.log")
	cfg.Logging.File = abs
	if got := LogFilePath(cfg); got != abs {
		t.Errorf("expected %q, got %q", abs, got)
	}

	cfg.Logging.File = "rel.log"
	if got := LogFilePath(cfg); filepath.Base(got) != "rel.log" || !filepath.IsAbs(got) {
		t.Errorf("expected absolute path ending in rel.log, got %q", got)
	}
}
