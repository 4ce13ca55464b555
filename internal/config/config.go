package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"goscore/internal/scoreboard"
)

const (
	envPrefix = "GOSCORE"

	keyScoreboardPath = "scoreboard_path"
	keyServerType     = "server_type"
	keyReapInterval   = "reap_interval"
	keyLogLevel       = "log_level"

	defaultReapInterval = 10 * time.Second
	defaultServerType   = ServerTypeStandalone
	defaultLogLevel     = "info"

	// ScoreboardFileName is the scoreboard file created in the runtime dir
	// unless scoreboard_path says otherwise.
	ScoreboardFileName = "goscore.scoreboard"
)

// Server types accepted in server_type.
const (
	ServerTypeStandalone = "standalone"
	ServerTypeInetd      = "inetd"
)

// Config aggregates the settings shared by the daemon, workers and monitors.
type Config struct {
	ScoreboardPath string        `mapstructure:"scoreboard_path"`
	ServerType     string        `mapstructure:"server_type"`
	ReapInterval   time.Duration `mapstructure:"reap_interval"`
	LogLevel       string        `mapstructure:"log_level"`
}

// Load builds a Config from defaults, an optional config file (any format
// viper understands) and GOSCORE_* environment overrides, in that order.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault(keyScoreboardPath, filepath.Join(RuntimeDir(), ScoreboardFileName))
	v.SetDefault(keyServerType, defaultServerType)
	v.SetDefault(keyReapInterval, defaultReapInterval)
	v.SetDefault(keyLogLevel, defaultLogLevel)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ServerType = strings.ToLower(strings.TrimSpace(cfg.ServerType))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges that the decoder cannot.
func (c Config) Validate() error {
	if c.ScoreboardPath == "" {
		return errors.New("scoreboard_path must not be empty")
	}
	if !filepath.IsAbs(c.ScoreboardPath) {
		return fmt.Errorf("scoreboard_path %q must be absolute", c.ScoreboardPath)
	}
	switch c.ServerType {
	case ServerTypeStandalone, ServerTypeInetd:
	default:
		return fmt.Errorf("server_type %q must be %q or %q", c.ServerType, ServerTypeStandalone, ServerTypeInetd)
	}
	if c.ReapInterval <= 0 {
		return errors.New("reap_interval must be > 0")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// RunMode maps server_type onto the scoreboard header policy.
func (c Config) RunMode() scoreboard.RunMode {
	if c.ServerType == ServerTypeInetd {
		return scoreboard.PerConnection
	}
	return scoreboard.Standalone
}

// Level returns the parsed log level, falling back to Info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// RuntimeDir returns the directory holding the scoreboard and the daemon pid
// file. Order of precedence (first wins):
// 1) GOSCORE_RUNTIME_DIR
// 2) if runtime=linux: $XDG_RUNTIME_DIR or /run/user/<UID>
// 3) otherwise /tmp/goscore-<UID>
//
// The result is never /tmp itself: the scoreboard refuses world-writable
// parents.
func RuntimeDir() string {
	if rd := os.Getenv(envPrefix + "_RUNTIME_DIR"); rd != "" {
		return rd
	}

	uid := currentUID()
	if runtime.GOOS == "linux" {
		if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
			return v
		}
		return filepath.Join("/run/user", uid)
	}
	return filepath.Join(os.TempDir(), "goscore-"+uid)
}

// EnsureRuntimeDir creates the runtime dir if it doesn't exist.
func EnsureRuntimeDir() error {
	return os.MkdirAll(RuntimeDir(), 0o700)
}

func currentUID() string {
	u, err := user.Current()
	if err == nil && u != nil && u.Uid != "" {
		return u.Uid
	}
	return "0"
}
