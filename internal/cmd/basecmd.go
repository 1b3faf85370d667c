package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/gpupool/gatewayd/internal/config"
	"github.com/gpupool/gatewayd/internal/flags"
)

type BaseCmd struct {
	logger hclog.Logger
}

// NewBaseCmd returns a BaseCmd that hands out logger.
// A nil logger makes Logger fall back to one configured from flags and environment.
func NewBaseCmd(logger hclog.Logger) *BaseCmd {
	return &BaseCmd{logger: logger}
}

// SetLogger updates the command's logger
func (c *BaseCmd) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

// Logger returns the current logger for the command
func (c *BaseCmd) Logger() hclog.Logger {
	if c.logger != nil {
		return c.logger
	}

	// Get log level from flags first, then environment, then default
	logLevel := flags.LogLevel
	if logLevel == "" {
		logLevel = strings.ToLower(os.Getenv(flags.EnvVarLogLevel))
		if logLevel == "" {
			logLevel = flags.DefaultLogLevel
		}
	}

	// Get log path from flags first, then environment
	logPath := flags.LogPath
	if logPath == "" {
		logPath = strings.TrimSpace(os.Getenv(flags.EnvVarLogPath))
	}

	c.logger = NewLogger(AppName()+"-default", logLevel, logPath, os.Stderr)

	return c.logger
}

// LoadConfig loads the configuration file selected by the global --config-file flag.
func (c *BaseCmd) LoadConfig(loader config.Loader) (*config.Config, error) {
	path := strings.TrimSpace(flags.ConfigFile)
	if path == "" {
		path = flags.DefaultConfigFile
	}

	cfg, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	c.Logger().Debug("Configuration loaded", "path", path)

	return cfg, nil
}

// NewLogger creates a logger writing to the file at logPath, or to fallback when no path is set.
// If the file cannot be opened, fallback is used and the problem reported on stderr.
func NewLogger(name string, level string, logPath string, fallback io.Writer) hclog.Logger {
	output := fallback
	if output == nil {
		output = io.Discard
	}

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to open log file (%s): %v, using fallback output\n", logPath, err)
		} else {
			output = f
		}
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  hclog.LevelFromString(ParseLogLevel(level)),
		Output: output,
	})
}

// ParseLogLevel normalizes a log level name, falling back to the default level for unknown values.
func ParseLogLevel(level string) string {
	lvl := strings.ToLower(strings.TrimSpace(level))
	switch lvl {
	case "trace", "debug", "info", "warn", "error", "off":
		return lvl
	default:
		return flags.DefaultLogLevel
	}
}
