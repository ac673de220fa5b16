// Package core composes the OFS client: the Engine wires configuration,
// transport, session and services together, and the Controller drives the
// login and main views on top of it.
package core

import (
	"fmt"
	"sync"

	"github.com/ofs-tools/ofs-client/internal/config"
	"github.com/ofs-tools/ofs-client/internal/constants"
	"github.com/ofs-tools/ofs-client/internal/events"
	"github.com/ofs-tools/ofs-client/internal/logging"
	"github.com/ofs-tools/ofs-client/internal/protocol"
	"github.com/ofs-tools/ofs-client/internal/services"
	"github.com/ofs-tools/ofs-client/internal/session"
)

// Engine owns the long-lived client components.
type Engine struct {
	config   *config.Config
	eventBus *events.EventBus
	logger   *logging.Logger

	caller   protocol.Caller
	sessions *session.Manager

	fileService   *services.FileService
	userService   *services.UserService
	systemService *services.SystemService

	closeOnce sync.Once
}

// NewEngine builds an engine talking to the server described by cfg.
// A nil cfg uses the defaults.
func NewEngine(cfg *config.Config, logger *logging.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	dialer, err := protocol.NewDialer(cfg.Proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialer: %w", err)
	}
	client := protocol.NewClient(cfg.Address(),
		protocol.WithTimeout(cfg.Timeout()),
		protocol.WithDialer(dialer),
		protocol.WithLogger(logger.Named("protocol")),
	)

	e := newEngine(client, logger)
	e.config = cfg
	return e, nil
}

// NewEngineWithCaller builds an engine on an existing caller, such as an
// in-memory server.
func NewEngineWithCaller(caller protocol.Caller, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	e := newEngine(caller, logger)
	e.config = config.NewConfig()
	return e
}

func newEngine(caller protocol.Caller, logger *logging.Logger) *Engine {
	sessions := session.NewManager(caller, logger.Named("session"))
	return &Engine{
		eventBus:      events.NewEventBus(constants.EventBusDefaultBuffer),
		logger:        logger,
		caller:        caller,
		sessions:      sessions,
		fileService:   services.NewFileService(sessions, logger),
		userService:   services.NewUserService(sessions, logger),
		systemService: services.NewSystemService(sessions, logger),
	}
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *config.Config { return e.config }

// Events returns the event bus for subscriptions.
func (e *Engine) Events() *events.EventBus { return e.eventBus }

// Logger returns the engine logger.
func (e *Engine) Logger() *logging.Logger { return e.logger }

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

// FileService returns the file and directory operations.
func (e *Engine) FileService() *services.FileService { return e.fileService }

// UserService returns the account operations.
func (e *Engine) UserService() *services.UserService { return e.userService }

// SystemService returns the statistics operations.
func (e *Engine) SystemService() *services.SystemService { return e.systemService }

// Close shuts down the event bus. It is safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(e.eventBus.Close)
}
