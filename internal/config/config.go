// config.go — probe configuration (spec §6's env-var table, component
// unnumbered ambient layer).
//
// Precedence, lowest to highest: built-in defaults < qtmcp.toml overlay <
// environment variables. gasoline's sibling teranos-QNTX reads am.toml with
// BurntSushi/toml the same layered way (defaults, then file, then env);
// this package follows that shape without pulling in viper, since the only
// dependency the corpus actually grounds for config is BurntSushi/toml.
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"

	"github.com/ssss2art/qtmcp/internal/inject"
	"github.com/ssss2art/qtmcp/internal/probe"
)

// fileOverlay mirrors qtmcp.toml's shape. Every field is optional; a zero
// value means "use whatever the lower-precedence layer already set".
type fileOverlay struct {
	Enabled          *bool    `toml:"enabled"`
	Mode             string   `toml:"mode"`
	Bind             string   `toml:"bind"`
	Port             *int     `toml:"port"`
	LogLevel         string   `toml:"log_level"`
	InjectChildren   *bool    `toml:"inject_children"`
	PortZeroChildren *bool    `toml:"port_zero_children"`
	FrameworkVersion string   `toml:"framework_version"`
	ProtocolVersion  string   `toml:"protocol_version"`
	ProbePath        string   `toml:"probe_path"`

	Inject struct {
		DenyList []string `toml:"deny_list"`
	} `toml:"inject"`
}

// Environment variable names, the source of truth per spec §6's table.
const (
	envEnabled          = "QTMCP_ENABLED"
	envMode             = "QTMCP_MODE"
	envBind             = "QTMCP_BIND"
	envPort             = "QTMCP_PORT"
	envLogLevel         = "QTMCP_LOG_LEVEL"
	envInjectChildren   = "QTMCP_INJECT_CHILDREN"
	envPortZeroChildren = "QTMCP_PORT_ZERO_CHILDREN"
	envDenyList         = "QTMCP_INJECT_DENY_LIST" // colon-separated
	envProbePath        = "QTMCP_PROBE_PATH"
	envFrameworkVersion = "QTMCP_FRAMEWORK_VERSION"
	envProtocolVersion  = "QTMCP_PROTOCOL_VERSION"
)

// defaults returns the built-in bottom layer of the precedence chain.
func defaults() probe.Config {
	return probe.Config{
		Enabled:          true,
		Mode:             probe.ModeNative,
		Bind:             "127.0.0.1",
		Port:             0,
		LogLevel:         "info",
		InjectChildren:   false,
		PortZeroChildren: true, // spec §9 open question, resolved: on by default
		DenyList:         append([]string(nil), inject.DefaultDenyList...),
		ProtocolVersion:  "1",
	}
}

// Load builds a probe.Config from defaults, an optional qtmcp.toml at
// tomlPath (skipped silently if it does not exist), then environment
// variables, in that precedence order. tomlPath may be empty to skip the
// file layer entirely.
func Load(tomlPath string) (probe.Config, error) {
	cfg := defaults()

	if tomlPath != "" {
		if _, err := os.Stat(tomlPath); err == nil {
			var overlay fileOverlay
			if _, err := toml.DecodeFile(tomlPath, &overlay); err != nil {
				return probe.Config{}, errors.Wrapf(err, "config: parse %s", tomlPath)
			}
			applyFile(&cfg, overlay)
		} else if !os.IsNotExist(err) {
			return probe.Config{}, errors.Wrapf(err, "config: stat %s", tomlPath)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return probe.Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *probe.Config, f fileOverlay) {
	if f.Enabled != nil {
		cfg.Enabled = *f.Enabled
	}
	if f.Mode != "" {
		cfg.Mode = probe.Mode(f.Mode)
	}
	if f.Bind != "" {
		cfg.Bind = f.Bind
	}
	if f.Port != nil {
		cfg.Port = *f.Port
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.InjectChildren != nil {
		cfg.InjectChildren = *f.InjectChildren
	}
	if f.PortZeroChildren != nil {
		cfg.PortZeroChildren = *f.PortZeroChildren
	}
	if len(f.Inject.DenyList) > 0 {
		cfg.DenyList = f.Inject.DenyList
	}
	if f.ProbePath != "" {
		cfg.ProbePath = f.ProbePath
	}
	if f.FrameworkVersion != "" {
		cfg.FrameworkVersion = f.FrameworkVersion
	}
	if f.ProtocolVersion != "" {
		cfg.ProtocolVersion = f.ProtocolVersion
	}
}

func applyEnv(cfg *probe.Config) error {
	if v, ok := os.LookupEnv(envEnabled); ok {
		b, err := parseBool(envEnabled, v)
		if err != nil {
			return err
		}
		cfg.Enabled = b
	}
	if v, ok := os.LookupEnv(envMode); ok {
		cfg.Mode = probe.Mode(v)
	}
	if v, ok := os.LookupEnv(envBind); ok {
		cfg.Bind = v
	}
	if v, ok := os.LookupEnv(envPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "config: %s must be an integer", envPort)
		}
		cfg.Port = port
	}
	if v, ok := os.LookupEnv(envLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv(envInjectChildren); ok {
		b, err := parseBool(envInjectChildren, v)
		if err != nil {
			return err
		}
		cfg.InjectChildren = b
	}
	if v, ok := os.LookupEnv(envPortZeroChildren); ok {
		b, err := parseBool(envPortZeroChildren, v)
		if err != nil {
			return err
		}
		cfg.PortZeroChildren = b
	}
	if v, ok := os.LookupEnv(envDenyList); ok && v != "" {
		// A colon right after a lone drive letter (C:\...) is part of the
		// path, not a separator.
		var list []string
		start := 0
		for i := 0; i < len(v); i++ {
			if v[i] != ':' || (i-start == 1 && i+1 < len(v) && (v[i+1] == '\\' || v[i+1] == '/')) {
				continue
			}
			list = append(list, v[start:i])
			start = i + 1
		}
		cfg.DenyList = append(list, v[start:])
	}
	if v, ok := os.LookupEnv(envProbePath); ok {
		cfg.ProbePath = v
	}
	if v, ok := os.LookupEnv(envFrameworkVersion); ok {
		cfg.FrameworkVersion = v
	}
	if v, ok := os.LookupEnv(envProtocolVersion); ok {
		cfg.ProtocolVersion = v
	}
	return nil
}

// parseBool accepts spec §6's "0"|"1" convention for boolean env vars.
func parseBool(name, v string) (bool, error) {
	switch v {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, errors.Newf("config: %s must be \"0\" or \"1\", got %q", name, v)
	}
}
