// Package config loads settings from the config file, STN_* environment
// variables and command line flags.
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the resolved application configuration
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Autosave AutosaveConfig `mapstructure:"autosave"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
	// DataDir holds the settings database and the log file
	DataDir string `mapstructure:"data_dir"`
	Debug   bool   `mapstructure:"debug"`
}

// APIConfig points the client at the notes server
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" default:"http://localhost:5000/api"`
	Timeout time.Duration `mapstructure:"timeout" default:"10s"`
}

// AutosaveConfig tunes the editor autosave
type AutosaveConfig struct {
	QuietInterval time.Duration `mapstructure:"quiet_interval" default:"2s"`
}

// UIConfig holds interface preferences
type UIConfig struct {
	Theme string `mapstructure:"theme" default:"tokyo-night"`
}

// LogConfig selects the log level and file
type LogConfig struct {
	// Level as understood by zapcore.ParseLevel
	Level string `mapstructure:"level" default:"info"`
	// File defaults to <data_dir>/stn.log
	File string `mapstructure:"file"`
}

// DBPath returns the settings database location
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "stn.db")
}

// LogFile returns the log file location
func (c *Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, "stn.log")
}

// DefaultConfigFile returns $XDG_CONFIG_HOME/stn/config.yaml
func DefaultConfigFile() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "stn", "config.yaml")
}

// DefaultDataDir returns $XDG_DATA_HOME/stn
func DefaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "stn"
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "stn")
}

// New returns a viper instance with env binding and the config file
// location set. Flags may be bound to it before calling Load. Default
// values come from the struct tags of Config.
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigFile(DefaultConfigFile())
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix("STN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees env values of keys viper already knows
	for _, key := range keys(reflect.TypeOf(Config{}), "") {
		_ = v.BindEnv(key)
	}
	return v
}

// keys lists the dotted mapstructure keys of the leaf fields of t
func keys(t reflect.Type, prefix string) []string {
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("mapstructure")
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			out = append(out, keys(f.Type, name)...)
			continue
		}
		out = append(out, name)
	}
	return out
}

// Load reads the config file if present and resolves the configuration
func Load(v *viper.Viper) (*Config, error) {
	// A missing file is fine, the defaults apply
	if _, err := os.Stat(v.ConfigFileUsed()); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config")
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	// fields left at their zero value take the default tag
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "apply config defaults")
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	return c, nil
}
