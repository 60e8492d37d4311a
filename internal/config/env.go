package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TICKSCRIPT_"

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Missing files are ignored and variables
// already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// envSetter applies one variable to the settings.
type envSetter func(s *Settings, value string) error

var envMapping = map[string]envSetter{
	"SCRIPTS_DIR":        func(s *Settings, v string) error { s.Scripts.Dir = v; return nil },
	"SCRIPTS_EXTENSION":  func(s *Settings, v string) error { s.Scripts.Extension = v; return nil },
	"STATE_FILE":         func(s *Settings, v string) error { s.Scripts.StateFile = v; return nil },
	"CALL_TIMEOUT":       durationSetter(func(s *Settings) *Duration { return &s.Scripts.CallTimeout }),
	"WATCH_DEBOUNCE":     durationSetter(func(s *Settings) *Duration { return &s.Scripts.Debounce }),
	"BREAKER_THRESHOLD":  intSetter(func(s *Settings) *int { return &s.Breaker.Threshold }),
	"BREAKER_WINDOW":     durationSetter(func(s *Settings) *Duration { return &s.Breaker.Window }),
	"TICK_INTERVAL":      durationSetter(func(s *Settings) *Duration { return &s.Host.TickInterval }),
	"SURFACE_WIDTH":      intSetter(func(s *Settings) *int { return &s.Host.SurfaceWidth }),
	"LOG_LEVEL":          func(s *Settings, v string) error { s.Log.Level = v; return nil },
	"LOG_FORMAT":         func(s *Settings, v string) error { s.Log.Format = strings.ToLower(v); return nil },
	"DESKTOP_NOTIFY":     boolSetter(func(s *Settings) *bool { return &s.Notify.Desktop }),
	"NOTIFY_QUEUE_LIMIT": intSetter(func(s *Settings) *int { return &s.Notify.QueueLimit }),
}

// EnvVars returns the names of the recognized environment variables.
func EnvVars() []string {
	names := make([]string, 0, len(envMapping))
	for k := range envMapping {
		names = append(names, EnvPrefix+k)
	}
	return names
}

// ApplyEnv overrides settings from environment variables found by lookup.
// Empty values are treated as set.
func ApplyEnv(s *Settings, lookup func(string) (string, bool)) error {
	for name, set := range envMapping {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := set(s, v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
	}
	return nil
}

func durationSetter(field func(*Settings) *Duration) envSetter {
	return func(s *Settings, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(s) = Duration(d)
		return nil
	}
}

func intSetter(field func(*Settings) *int) envSetter {
	return func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(s) = n
		return nil
	}
}

func boolSetter(field func(*Settings) *bool) envSetter {
	return func(s *Settings, v string) error {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			*field(s) = true
		case "0", "false", "no", "off", "":
			*field(s) = false
		default:
			return fmt.Errorf("invalid boolean %q", v)
		}
		return nil
	}
}
