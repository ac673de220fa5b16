package constants

import (
	"time"
)

// Server connection defaults
const (
	// DefaultHost - address of the OFS server when nothing is configured
	DefaultHost = "127.0.0.1"

	// DefaultPort - TCP port the OFS server listens on by default
	DefaultPort = 8080

	// DefaultCallTimeout - bound on connect + send + receive for a single call (5s)
	// Each call uses its own connection, so this is also the connection lifetime.
	DefaultCallTimeout = 5 * time.Second

	// MaxCallTimeout - upper bound accepted from configuration (5 minutes)
	MaxCallTimeout = 5 * time.Minute
)

// Remote file tree
const (
	// RootPath is the root of the remote file tree.
	RootPath = "/"

	// PathSeparator separates segments of a remote path.
	PathSeparator = "/"

	// BootstrapAdmin is the account created by the server at format time.
	// The client refuses to delete it.
	BootstrapAdmin = "admin"
)

// Event bus configuration
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for event channels (5000)
	EventBusMaxBuffer = 5000
)

// Configuration file locations
const (
	// ConfigDirName is the directory under ~/.config holding client state.
	ConfigDirName = "ofs"

	// ConfigFileName is the INI file inside ConfigDirName.
	ConfigFileName = "ofs.ini"

	// LogFileName is the default log file name when file logging is enabled.
	LogFileName = "ofs-client.log"
)

// Log rotation (lumberjack)
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 5
	LogMaxAgeDays = 30
)

// Proxy modes accepted in [proxy] mode
const (
	ProxyModeNone   = "none"
	ProxyModeSOCKS5 = "socks5"
)

// Interactive shell
const (
	// ShellPromptSuffix is appended to the current path in the shell prompt.
	ShellPromptSuffix = "> "

	// LoginUsernameDefault pre-fills the login prompt when the config has no username.
	LoginUsernameDefault = "admin"

	// PasswordEnvVar supplies the password to one-shot commands without a prompt.
	PasswordEnvVar = "OFS_PASSWORD"
)
