package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate points every config source at an empty location.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MPD_HOST", "")
	t.Setenv("MPD_PORT", "")
	for _, key := range []string{"HOST", "PORT", "PASSWORD", "KEEPALIVE", "POLL_INTERVAL", "UI", "LOG_LEVEL"} {
		t.Setenv(EnvPrefix+"_"+key, "")
		os.Unsetenv(EnvPrefix + "_" + key)
	}
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(newFlags(t), "", "")
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6600, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.KeepAlive)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.Echo)
	assert.Equal(t, UIAuto, cfg.UI)
	assert.Equal(t, filepath.Join(home, "mpdscripts"), cfg.ScriptDir)
	assert.Empty(t, cfg.File)
	assert.Equal(t, "localhost:6600", cfg.Addr())
}

func TestLoadPrecedence(t *testing.T) {
	isolate(t)

	dir, err := Dir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	file := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
host = "filehost"
port = 6601
keepalive = "5s"
echo = false

[log]
level = "DEBUG"
`), 0o644))

	t.Setenv("MPD_HOST", "secret@mpdhost")
	t.Setenv("MPDSHELL_PORT", "6602")
	t.Setenv("MPDSHELL_LOG_LEVEL", "WARNING")

	cfg, err := Load(newFlags(t, "--keepalive", "7s"), "", "")
	require.NoError(t, err)

	assert.Equal(t, file, cfg.File)
	assert.Equal(t, "filehost", cfg.Host, "file beats MPD_HOST")
	assert.Equal(t, "secret", cfg.Password, "MPD_HOST password used when nothing else sets one")
	assert.Equal(t, 6602, cfg.Port, "env beats file")
	assert.Equal(t, 7*time.Second, cfg.KeepAlive, "flag beats file")
	assert.False(t, cfg.Echo)
	assert.Equal(t, "WARNING", cfg.Log.Level)
}

func TestLoadHostArgument(t *testing.T) {
	isolate(t)
	t.Setenv("MPDSHELL_HOST", "envhost")

	cfg, err := Load(newFlags(t, "-p", "7000"), "", "arghost")
	require.NoError(t, err)

	assert.Equal(t, "arghost", cfg.Host)
	assert.Equal(t, 7000, cfg.Port)
}

func TestLoadExplicitFile(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "shell.yaml")
	require.NoError(t, os.WriteFile(file, []byte("ui: repl\npoll_interval: 100ms\n"), 0o644))

	cfg, err := Load(nil, file, "")
	require.NoError(t, err)
	assert.Equal(t, UIREPL, cfg.UI)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)

	_, err = Load(nil, filepath.Join(t.TempDir(), "missing.toml"), "")
	assert.Error(t, err)
}

func TestMPDPort(t *testing.T) {
	isolate(t)
	t.Setenv("MPD_HOST", "music.lan")
	t.Setenv("MPD_PORT", "6700")

	cfg, err := Load(nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "music.lan", cfg.Host)
	assert.Equal(t, 6700, cfg.Port)
	assert.Empty(t, cfg.Password)
}

func TestParseMPDHost(t *testing.T) {
	tests := []struct {
		env, host, password string
	}{
		{"localhost", "localhost", ""},
		{"pw@localhost", "localhost", "pw"},
		{"p@ss@host", "host", "p@ss"},
		{"@abstract", "@abstract", ""},
	}
	for _, tt := range tests {
		host, password := parseMPDHost(tt.env)
		assert.Equal(t, tt.host, host, tt.env)
		assert.Equal(t, tt.password, password, tt.env)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port zero", func(c *Config) { c.Port = 0 }, "port"},
		{"port high", func(c *Config) { c.Port = 70000 }, "port"},
		{"keepalive", func(c *Config) { c.KeepAlive = 0 }, "keepalive"},
		{"poll zero", func(c *Config) { c.PollInterval = 0 }, "poll_interval"},
		{"poll slow", func(c *Config) { c.PollInterval = 2 * time.Second }, "poll_interval"},
		{"ui", func(c *Config) { c.UI = "gui" }, "ui"},
		{"log level", func(c *Config) { c.Log.Level = "TRACE" }, "log level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}

	require.NoError(t, Defaults().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEncode(t *testing.T) {
	cfg := Defaults()
	cfg.Password = "hunter2"

	out, err := Encode(cfg, FormatTOML)
	require.NoError(t, err)
	text := string(out)
	assert.Regexp(t, `keepalive = ['"]3s['"]`, text)
	assert.Contains(t, text, "[log]")
	assert.NotContains(t, text, "hunter2")

	out, err = Encode(cfg, FormatYAML)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, "50ms", decoded["poll_interval"])
	assert.Equal(t, redacted, decoded["password"])

	_, err = Encode(cfg, "ini")
	assert.Error(t, err)
}

func TestEncodeRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Port = 6690
	cfg.UI = UITUI

	out, err := Encode(cfg, FormatTOML)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, out, 0o644))

	loaded, err := Load(nil, file, "")
	require.NoError(t, err)
	assert.Equal(t, 6690, loaded.Port)
	assert.Equal(t, UITUI, loaded.UI)
	assert.True(t, strings.HasSuffix(loaded.ScriptDir, "mpdscripts"))
}
