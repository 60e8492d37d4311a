package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, 5, s.Breaker.Threshold)
	assert.Equal(t, 30*time.Second, s.Breaker.Window.Std())
	assert.Equal(t, time.Duration(0), s.Scripts.CallTimeout.Std())
	assert.Equal(t, filepath.Join("scripts", "state.toml"), s.StatePath())
}

func TestLoad_TOML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "tickscript.toml", `
[scripts]
dir = "/srv/scripts"
call_timeout = "250ms"

[breaker]
threshold = 3
window = "1m"

[log]
format = "json"
`)

	s, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Scripts.Dir = "/srv/scripts"
	want.Scripts.CallTimeout = Duration(250 * time.Millisecond)
	want.Breaker.Threshold = 3
	want.Breaker.Window = Duration(time.Minute)
	want.Log.Format = "json"
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "tickscript.yaml", `
scripts:
  dir: ./mine
  extension: .luau
host:
  tick_interval: 16ms
notify:
  desktop: true
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./mine", s.Scripts.Dir)
	assert.Equal(t, ".luau", s.Scripts.Extension)
	assert.Equal(t, 16*time.Millisecond, s.Host.TickInterval.Std())
	assert.True(t, s.Notify.Desktop)
	assert.Equal(t, DefaultBreakerLimit, s.Breaker.Threshold)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = Load(writeFile(t, dir, "conf.ini", "x=1"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(writeFile(t, dir, "bad.toml", "[scripts\n"))
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)

	_, err = Load(writeFile(t, dir, "invalid.toml", "[breaker]\nthreshold = 0\n"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "breaker.threshold", verr.Field)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TICKSCRIPT_SCRIPTS_DIR", "/env/scripts")
	t.Setenv("TICKSCRIPT_BREAKER_THRESHOLD", "9")
	t.Setenv("TICKSCRIPT_BREAKER_WINDOW", "45s")
	t.Setenv("TICKSCRIPT_DESKTOP_NOTIFY", "yes")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/scripts", s.Scripts.Dir)
	assert.Equal(t, 9, s.Breaker.Threshold)
	assert.Equal(t, 45*time.Second, s.Breaker.Window.Std())
	assert.True(t, s.Notify.Desktop)
}

func TestApplyEnv_BadValue(t *testing.T) {
	lookup := func(name string) (string, bool) {
		if name == "TICKSCRIPT_BREAKER_THRESHOLD" {
			return "many", true
		}
		return "", false
	}
	err := ApplyEnv(Default(), lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TICKSCRIPT_BREAKER_THRESHOLD")
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "TICKSCRIPT_LOG_LEVEL=debug\n")
	t.Cleanup(func() { os.Unsetenv("TICKSCRIPT_LOG_LEVEL") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "absent.env")))
	assert.Equal(t, "debug", os.Getenv("TICKSCRIPT_LOG_LEVEL"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*Settings)
	}{
		{"scripts.dir", func(s *Settings) { s.Scripts.Dir = "" }},
		{"scripts.extension", func(s *Settings) { s.Scripts.Extension = "lua" }},
		{"scripts.state_file", func(s *Settings) { s.Scripts.StateFile = "" }},
		{"scripts.call_timeout", func(s *Settings) { s.Scripts.CallTimeout = -1 }},
		{"breaker.window", func(s *Settings) { s.Breaker.Window = 0 }},
		{"host.tick_interval", func(s *Settings) { s.Host.TickInterval = 0 }},
		{"log.format", func(s *Settings) { s.Log.Format = "xml" }},
		{"notify.queue_limit", func(s *Settings) { s.Notify.QueueLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			var verr *ValidationError
			require.True(t, errors.As(s.Validate(), &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestStatePath_Absolute(t *testing.T) {
	s := Default()
	abs := filepath.Join(t.TempDir(), "elsewhere.toml")
	s.Scripts.StateFile = abs
	assert.Equal(t, abs, s.StatePath())
}

// clearEnv unsets every TICKSCRIPT_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range EnvVars() {
		if v, ok := os.LookupEnv(name); ok {
			t.Setenv(name, v)
			os.Unsetenv(name)
		}
	}
}
