// Package config loads mpdshell settings. Sources, highest priority first:
// command-line flags, MPDSHELL_* environment variables, the config file,
// MPD_HOST/MPD_PORT, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/SirJson/mpdshell/internal/logger"
	"github.com/SirJson/mpdshell/mpdprotocol"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. MPDSHELL_PORT.
	EnvPrefix = "MPDSHELL"

	configName = "config"
	appDir     = "mpdshell"

	// MaxPollInterval bounds poll_interval; slower polling leaves replies on screen late.
	MaxPollInterval = time.Second
)

// UI modes.
const (
	UIAuto = "auto"
	UITUI  = "tui"
	UIREPL = "repl"
)

// Config is the effective configuration.
type Config struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Timeout      time.Duration `mapstructure:"timeout"`
	KeepAlive    time.Duration `mapstructure:"keepalive"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Echo         bool          `mapstructure:"echo"`
	ScriptDir    string        `mapstructure:"script_dir"`
	UI           string        `mapstructure:"ui"`
	HistoryFile  string        `mapstructure:"history_file"`
	Log          logger.Config `mapstructure:"log"`

	// File is the config file that was read, empty if none.
	File string `mapstructure:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Host:         mpdprotocol.DefaultHost,
		Port:         mpdprotocol.DefaultPort,
		Timeout:      mpdprotocol.ConnectionTimeout,
		KeepAlive:    3 * time.Second,
		PollInterval: 50 * time.Millisecond,
		Echo:         true,
		ScriptDir:    filepath.Join("~", "mpdscripts"),
		UI:           UIAuto,
		HistoryFile:  filepath.Join("~", ".mpdshell_history"),
		Log:          logger.DefaultConfig(),
	}
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"port":          "port",
	"password":      "password",
	"timeout":       "timeout",
	"keepalive":     "keepalive",
	"poll-interval": "poll_interval",
	"echo":          "echo",
	"script-dir":    "script_dir",
	"ui":            "ui",
	"history-file":  "history_file",
	"log-level":     "log.level",
	"log-file":      "log.file",
	"log-console":   "log.console",
	"log-format":    "log.format",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.IntP("port", "p", d.Port, "The port on which MPD is running")
	fs.String("password", "", "Password sent after connecting")
	fs.Duration("timeout", d.Timeout, "Connect and greeting timeout")
	fs.Duration("keepalive", d.KeepAlive, "Keep-alive probe interval")
	fs.Duration("poll-interval", d.PollInterval, "Socket poll interval")
	fs.Bool("echo", d.Echo, "Echo protocol commands before their replies")
	fs.String("script-dir", d.ScriptDir, "Directory searched by !exec and !scripts")
	fs.String("ui", d.UI, "Front end: auto, tui or repl")
	fs.String("history-file", d.HistoryFile, "Line editor history file (repl only)")
	fs.String("log-level", d.Log.Level, "Log level: DEBUG, INFO, WARNING or ERROR")
	fs.String("log-file", "", "Write logs to this file")
	fs.Bool("log-console", d.Log.Console, "Write logs to stderr")
	fs.String("log-format", d.Log.Format, "Log format: text or json")
}

// Load builds the configuration. fs may be nil. configFile, when set,
// must exist; otherwise the user config directory is searched and a
// missing file is not an error. host, when set, overrides every other
// host source.
func Load(fs *pflag.FlagSet, configFile, host string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(expandHome(configFile))
	} else {
		v.SetConfigName(configName)
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}
	if host != "" {
		v.Set("host", host)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.ScriptDir = expandHome(cfg.ScriptDir)
	cfg.HistoryFile = expandHome(cfg.HistoryFile)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	host, password := d.Host, d.Password
	if env := os.Getenv("MPD_HOST"); env != "" {
		host, password = parseMPDHost(env)
	}
	port := d.Port
	if env := os.Getenv("MPD_PORT"); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			port = n
		}
	}

	v.SetDefault("host", host)
	v.SetDefault("port", port)
	v.SetDefault("password", password)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("keepalive", d.KeepAlive)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("echo", d.Echo)
	v.SetDefault("script_dir", d.ScriptDir)
	v.SetDefault("ui", d.UI)
	v.SetDefault("history_file", d.HistoryFile)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
}

// parseMPDHost splits MPD_HOST's optional "password@" prefix.
func parseMPDHost(env string) (host, password string) {
	if i := strings.LastIndex(env, "@"); i > 0 {
		return env[i+1:], env[:i]
	}
	return env, ""
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.KeepAlive <= 0 {
		errs = append(errs, fmt.Errorf("keepalive must be positive, got %s", c.KeepAlive))
	}
	if c.PollInterval <= 0 || c.PollInterval > MaxPollInterval {
		errs = append(errs, fmt.Errorf("poll_interval must be in (0, %s], got %s", MaxPollInterval, c.PollInterval))
	}
	switch c.UI {
	case UIAuto, UITUI, UIREPL:
	default:
		errs = append(errs, fmt.Errorf("ui must be %s, %s or %s, got %q", UIAuto, UITUI, UIREPL, c.UI))
	}
	if !logger.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns host:port.
func (c Config) Addr() string {
	return mpdprotocol.Address(c.Host, c.Port)
}

// Dir returns the directory searched for the config file.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
