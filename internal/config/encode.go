package config

import (
	"fmt"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/SirJson/mpdshell/internal/logger"
)

// Output formats for Encode.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

const redacted = "********"

// fileView is the on-disk shape of Config. Durations are written as
// strings such as "3s" so the output can be read back by Load.
type fileView struct {
	Host         string        `toml:"host" yaml:"host"`
	Port         int           `toml:"port" yaml:"port"`
	Password     string        `toml:"password,omitempty" yaml:"password,omitempty"`
	Timeout      string        `toml:"timeout" yaml:"timeout"`
	KeepAlive    string        `toml:"keepalive" yaml:"keepalive"`
	PollInterval string        `toml:"poll_interval" yaml:"poll_interval"`
	Echo         bool          `toml:"echo" yaml:"echo"`
	ScriptDir    string        `toml:"script_dir" yaml:"script_dir"`
	UI           string        `toml:"ui" yaml:"ui"`
	HistoryFile  string        `toml:"history_file" yaml:"history_file"`
	Log          logger.Config `toml:"log" yaml:"log"`
}

// Encode renders cfg as a config file in the given format. The password
// is masked.
func Encode(cfg Config, format string) ([]byte, error) {
	view := fileView{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Timeout:      cfg.Timeout.String(),
		KeepAlive:    cfg.KeepAlive.String(),
		PollInterval: cfg.PollInterval.String(),
		Echo:         cfg.Echo,
		ScriptDir:    cfg.ScriptDir,
		UI:           cfg.UI,
		HistoryFile:  cfg.HistoryFile,
		Log:          cfg.Log,
	}
	if cfg.Password != "" {
		view.Password = redacted
	}

	switch strings.ToLower(format) {
	case FormatTOML, "":
		return toml.Marshal(view)
	case FormatYAML, "yml":
		return yaml.Marshal(view)
	default:
		return nil, fmt.Errorf("unsupported format %q (want %s or %s)", format, FormatTOML, FormatYAML)
	}
}
