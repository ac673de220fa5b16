package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ofs-tools/ofs-client/internal/constants"
)

// ConfigDirectory returns the directory holding the config file.
//   - Windows: %USERPROFILE%\.config\ofs
//   - Unix: ~/.config/ofs
func ConfigDirectory() (string, error) {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		return filepath.Join(userProfile, ".config", constants.ConfigDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", constants.ConfigDirName), nil
}

// LogFilePath resolves the configured log file. A relative name is placed
// in the config directory; an empty value disables file logging.
func LogFilePath(cfg *Config) string {
	if cfg == nil || cfg.Logging.File == "" {
		return ""
	}
	if filepath.IsAbs(cfg.Logging.File) {
		return cfg.Logging.File
	}
	dir, err := ConfigDirectory()
	if err != nil {
		return filepath.Join(os.TempDir(), cfg.Logging.File)
	}
	return filepath.Join(dir, cfg.Logging.File)
}
