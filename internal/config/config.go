// Package config loads todos configuration.
//
// Values are resolved in this order, later sources winning:
//  1. Built-in defaults
//  2. todos.toml ($XDG_CONFIG_HOME/todos, ~/.config/todos, or the working directory)
//  3. TODOS_* environment variables (TODOS_DB_PATH, TODOS_SEARCH_DEBOUNCE, ...)
//  4. Command-line flags bound with BindPFlag
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/mschirtzinger/todos/internal/search"
	"github.com/mschirtzinger/todos/internal/store/schema"
)

// Configuration keys.
const (
	KeyDBPath         = "db.path"
	KeySearchDebounce = "search.debounce"
	KeyWatchDebounce  = "watch.debounce"
	KeyDefaultAvatar  = "lists.default_avatar"
	KeyServerPort     = "server.port"
	KeyLogFile        = "log.file"
	KeyLogMaxSizeMB   = "log.max_size_mb"
	KeyColor          = "ui.color"
)

// FileName is the configuration file name without extension.
const FileName = "todos"

// Config is the resolved configuration.
type Config struct {
	DBPath         string
	SearchDebounce time.Duration
	WatchDebounce  time.Duration
	DefaultAvatar  string
	ServerPort     int
	LogFile        string
	LogMaxSizeMB   int
	Color          bool

	// File is the configuration file that was read, if any.
	File string
}

// New returns a viper instance with defaults, search paths and environment
// binding set up. Flags can be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("toml")
	for _, dir := range SearchDirs() {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("TODOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDBPath, DefaultDBPath())
	v.SetDefault(KeySearchDebounce, search.DefaultDebounce)
	v.SetDefault(KeyWatchDebounce, 100*time.Millisecond)
	v.SetDefault(KeyDefaultAvatar, schema.DefaultAvatar)
	v.SetDefault(KeyServerPort, 8080)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogMaxSizeMB, 10)
	v.SetDefault(KeyColor, true)
}

// Load reads the configuration file (an explicit file, or the first
// todos.toml found on the search path) and resolves every key. A missing
// file on the search path is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		DBPath:         expandHome(v.GetString(KeyDBPath)),
		SearchDebounce: v.GetDuration(KeySearchDebounce),
		WatchDebounce:  v.GetDuration(KeyWatchDebounce),
		DefaultAvatar:  v.GetString(KeyDefaultAvatar),
		ServerPort:     v.GetInt(KeyServerPort),
		LogFile:        expandHome(v.GetString(KeyLogFile)),
		LogMaxSizeMB:   v.GetInt(KeyLogMaxSizeMB),
		Color:          v.GetBool(KeyColor),
		File:           v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks resolved values.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%s must not be empty", KeyDBPath)
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("%s must not be negative", KeySearchDebounce)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("%s must not be negative", KeyWatchDebounce)
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("%s %d out of range", KeyServerPort, c.ServerPort)
	}
	return nil
}

// SearchDirs returns the directories searched for todos.toml, in search
// order. The first one is where `config init` writes.
func SearchDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "todos"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "todos"))
	}
	return append(dirs, ".")
}

// DefaultDBPath returns the default database location under the user's data
// directory, falling back to the working directory.
func DefaultDBPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "todos", "todos.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "todos", "todos.db")
	}
	return "todos.db"
}

// DefaultFilePath returns where `config init` writes the file.
func DefaultFilePath() string {
	return filepath.Join(SearchDirs()[0], FileName+".toml")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// fileConfig is the on-disk layout of todos.toml.
type fileConfig struct {
	DB struct {
		Path string `toml:"path"`
	} `toml:"db"`
	Search struct {
		Debounce string `toml:"debounce"`
	} `toml:"search"`
	Watch struct {
		Debounce string `toml:"debounce"`
	} `toml:"watch"`
	Lists struct {
		DefaultAvatar string `toml:"default_avatar"`
	} `toml:"lists"`
	Server struct {
		Port int `toml:"port"`
	} `toml:"server"`
	Log struct {
		File      string `toml:"file"`
		MaxSizeMB int    `toml:"max_size_mb"`
	} `toml:"log"`
	UI struct {
		Color bool `toml:"color"`
	} `toml:"ui"`
}

// WriteFile writes cfg to path as TOML. An existing file is only replaced
// when force is set.
func WriteFile(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var fc fileConfig
	fc.DB.Path = cfg.DBPath
	fc.Search.Debounce = cfg.SearchDebounce.String()
	fc.Watch.Debounce = cfg.WatchDebounce.String()
	fc.Lists.DefaultAvatar = cfg.DefaultAvatar
	fc.Server.Port = cfg.ServerPort
	fc.Log.File = cfg.LogFile
	fc.Log.MaxSizeMB = cfg.LogMaxSizeMB
	fc.UI.Color = cfg.Color

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(fc); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	v := viper.New()
	SetDefaults(v)
	return &Config{
		DBPath:         v.GetString(KeyDBPath),
		SearchDebounce: v.GetDuration(KeySearchDebounce),
		WatchDebounce:  v.GetDuration(KeyWatchDebounce),
		DefaultAvatar:  v.GetString(KeyDefaultAvatar),
		ServerPort:     v.GetInt(KeyServerPort),
		LogFile:        v.GetString(KeyLogFile),
		LogMaxSizeMB:   v.GetInt(KeyLogMaxSizeMB),
		Color:          v.GetBool(KeyColor),
	}
}
