package main

import (
	"fmt"
	"os"

	"github.com/dshills/tickscript/internal/config"
	"github.com/dshills/tickscript/internal/logging"
	"github.com/dshills/tickscript/internal/script"
)

// loadSettings reads .env, the configuration file and the environment,
// then applies command-line overrides.
func loadSettings(flags *globalFlags) (*config.Settings, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	settings, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.scriptsDir != "" {
		settings.Scripts.Dir = flags.scriptsDir
	}
	if flags.logLevel != "" {
		switch flags.logLevel {
		case "debug", "info", "warn", "error":
		default:
			return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", flags.logLevel)
		}
		settings.Log.Level = flags.logLevel
	}
	return settings, nil
}

func newLogger(settings *config.Settings) *logging.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(settings.Log.Level),
		Format: logging.Format(settings.Log.Format),
		Output: os.Stderr,
	})
}

// openStore opens the persisted state next to the scripts.
func openStore(settings *config.Settings) (*config.FileStore, error) {
	if err := os.MkdirAll(settings.Scripts.Dir, 0o755); err != nil {
		return nil, err
	}
	return config.OpenFileStore(settings.StatePath())
}

func newLoader(settings *config.Settings) *script.Loader {
	return script.NewLoader(settings.Scripts.Dir, settings.Scripts.Extension)
}
