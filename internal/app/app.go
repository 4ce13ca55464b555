package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"goscore/internal/config"
)

// Options configures the top-level controller.
type Options struct {
	// ConfigPath points to the optional config file.
	ConfigPath string
	// Logger receives scoreboard notices and daemon lifecycle events.
	Logger logrus.FieldLogger
}

// App exposes high-level operations that the CLI/TUI can reuse.
type App struct {
	cfgPath string
	log     logrus.FieldLogger
}

// New constructs the shared controller facade.
func New(opts Options) *App {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &App{
		cfgPath: opts.ConfigPath,
		log:     log,
	}
}

// ConfigPath returns the configured config file path (if any).
func (a *App) ConfigPath() string {
	return a.cfgPath
}

// Config loads the effective configuration.
func (a *App) Config() (config.Config, error) {
	cfg, err := loadConfig(a.cfgPath)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
