package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultScriptsDir      = "scripts"
	DefaultExtension       = ".lua"
	DefaultStateFile       = "state.toml"
	DefaultBreakerLimit    = 5
	DefaultBreakerWindow   = 30 * time.Second
	DefaultTickInterval    = 50 * time.Millisecond
	DefaultWatcherDebounce = 100 * time.Millisecond
	DefaultSurfaceWidth    = 80
	DefaultQueueLimit      = 64
)

// Duration is a time.Duration read from "30s"-style strings.
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Settings holds every tunable of the script runtime.
type Settings struct {
	Scripts ScriptSettings `toml:"scripts" yaml:"scripts"`
	Breaker BreakerSettings `toml:"breaker" yaml:"breaker"`
	Host    HostSettings    `toml:"host" yaml:"host"`
	Log     LogSettings     `toml:"log" yaml:"log"`
	Notify  NotifySettings  `toml:"notify" yaml:"notify"`
}

// ScriptSettings configures discovery and execution of scripts.
type ScriptSettings struct {
	// Dir is the flat directory holding script files.
	Dir string `toml:"dir" yaml:"dir"`
	// Extension selects script files, including the dot.
	Extension string `toml:"extension" yaml:"extension"`
	// StateFile holds the autoload map and selected script. Relative paths
	// resolve against Dir.
	StateFile string `toml:"state_file" yaml:"state_file"`
	// CallTimeout bounds each guest call. Zero disables it.
	CallTimeout Duration `toml:"call_timeout" yaml:"call_timeout"`
	// Debounce coalesces bursts of file events.
	Debounce Duration `toml:"debounce" yaml:"debounce"`
}

// BreakerSettings configures the per-script error circuit breaker.
type BreakerSettings struct {
	// Threshold is the number of errors that trips the breaker.
	Threshold int `toml:"threshold" yaml:"threshold"`
	// Window is the sliding window errors are counted over.
	Window Duration `toml:"window" yaml:"window"`
}

// HostSettings configures the reference host loop.
type HostSettings struct {
	TickInterval Duration `toml:"tick_interval" yaml:"tick_interval"`
	SurfaceWidth int      `toml:"surface_width" yaml:"surface_width"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// NotifySettings configures user notifications.
type NotifySettings struct {
	Desktop    bool `toml:"desktop" yaml:"desktop"`
	QueueLimit int  `toml:"queue_limit" yaml:"queue_limit"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Scripts: ScriptSettings{
			Dir:       DefaultScriptsDir,
			Extension: DefaultExtension,
			StateFile: DefaultStateFile,
			Debounce:  Duration(DefaultWatcherDebounce),
		},
		Breaker: BreakerSettings{
			Threshold: DefaultBreakerLimit,
			Window:    Duration(DefaultBreakerWindow),
		},
		Host: HostSettings{
			TickInterval: Duration(DefaultTickInterval),
			SurfaceWidth: DefaultSurfaceWidth,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
		Notify: NotifySettings{
			QueueLimit: DefaultQueueLimit,
		},
	}
}

// Load reads settings from path over the defaults, then applies TICKSCRIPT_*
// environment overrides and validates the result. An empty path skips the
// file. The format follows the extension: .toml, .yaml or .yml.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		if err := s.decodeFile(path); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(s, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, s)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, s)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

// Validate rejects settings the runtime cannot use.
func (s *Settings) Validate() error {
	switch {
	case s.Scripts.Dir == "":
		return &ValidationError{Field: "scripts.dir", Message: "must not be empty"}
	case !strings.HasPrefix(s.Scripts.Extension, ".") || len(s.Scripts.Extension) < 2:
		return &ValidationError{Field: "scripts.extension", Message: "must start with a dot"}
	case s.Scripts.StateFile == "":
		return &ValidationError{Field: "scripts.state_file", Message: "must not be empty"}
	case s.Scripts.CallTimeout < 0:
		return &ValidationError{Field: "scripts.call_timeout", Message: "must not be negative"}
	case s.Scripts.Debounce < 0:
		return &ValidationError{Field: "scripts.debounce", Message: "must not be negative"}
	case s.Breaker.Threshold <= 0:
		return &ValidationError{Field: "breaker.threshold", Message: "must be positive"}
	case s.Breaker.Window <= 0:
		return &ValidationError{Field: "breaker.window", Message: "must be positive"}
	case s.Host.TickInterval <= 0:
		return &ValidationError{Field: "host.tick_interval", Message: "must be positive"}
	case s.Host.SurfaceWidth <= 0:
		return &ValidationError{Field: "host.surface_width", Message: "must be positive"}
	case s.Log.Format != "text" && s.Log.Format != "json":
		return &ValidationError{Field: "log.format", Message: "must be text or json"}
	case s.Notify.QueueLimit <= 0:
		return &ValidationError{Field: "notify.queue_limit", Message: "must be positive"}
	}
	return nil
}

// StatePath returns the state file path, resolved against the scripts dir
// when relative.
func (s *Settings) StatePath() string {
	if filepath.IsAbs(s.Scripts.StateFile) {
		return s.Scripts.StateFile
	}
	return filepath.Join(s.Scripts.Dir, s.Scripts.StateFile)
}
