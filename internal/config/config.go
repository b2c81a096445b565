package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Source kinds.
const (
	SourceFirebase = "firebase"
	SourceRedis    = "redis"
	SourceStatic   = "static"
)

// Config captures everything countdown reads from config.toml.
type Config struct {
	Timezone    string
	PollSeconds int
	Source      SourceConfig
	Firebase    FirebaseConfig
	Redis       RedisConfig
	Static      StaticConfig
	Log         LogConfig
}

// SourceConfig selects where the target date is read from.
type SourceConfig struct {
	Kind string `toml:"kind"`
}

// FirebaseConfig points at a Realtime Database node.
type FirebaseConfig struct {
	URL  string `toml:"url"`
	Path string `toml:"path"`
	Auth string `toml:"auth"`
}

// RedisConfig points at a Redis key and its change channel.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Key      string `toml:"key"`
	Channel  string `toml:"channel"`
}

// StaticConfig seeds the in-memory source.
type StaticConfig struct {
	Target string `toml:"target"`
}

// LogConfig controls the log file written while the view runs.
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

const (
	defaultConfigPath   = "~/.config/countdown/config.toml"
	defaultLogFile      = "~/.local/state/countdown/countdown.log"
	defaultLogLevel     = "info"
	defaultPollSeconds  = 1
	defaultSourceKind   = SourceFirebase
	defaultFirebasePath = "selectedDate"
	defaultRedisAddr    = "127.0.0.1:6379"
	defaultRedisKey     = "selectedDate"
	defaultRedisChannel = "countdown:selectedDate"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		PollSeconds: defaultPollSeconds,
		Source:      SourceConfig{Kind: defaultSourceKind},
		Firebase:    FirebaseConfig{Path: defaultFirebasePath},
		Redis: RedisConfig{
			Addr:    defaultRedisAddr,
			Key:     defaultRedisKey,
			Channel: defaultRedisChannel,
		},
		Log: LogConfig{File: mustExpand(defaultLogFile), Level: defaultLogLevel},
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Timezone    string         `toml:"timezone"`
		PollSeconds int            `toml:"poll_seconds"`
		Source      SourceConfig   `toml:"source"`
		Firebase    FirebaseConfig `toml:"firebase"`
		Redis       RedisConfig    `toml:"redis"`
		Static      StaticConfig   `toml:"static"`
		Log         LogConfig      `toml:"log"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Config{
		Timezone:    strings.TrimSpace(raw.Timezone),
		PollSeconds: raw.PollSeconds,
		Source:      SourceConfig{Kind: strings.ToLower(strings.TrimSpace(raw.Source.Kind))},
		Firebase: FirebaseConfig{
			URL:  strings.TrimSpace(raw.Firebase.URL),
			Path: strings.Trim(strings.TrimSpace(raw.Firebase.Path), "/"),
			Auth: strings.TrimSpace(raw.Firebase.Auth),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(raw.Redis.Addr),
			Password: raw.Redis.Password,
			DB:       raw.Redis.DB,
			Key:      strings.TrimSpace(raw.Redis.Key),
			Channel:  strings.TrimSpace(raw.Redis.Channel),
		},
		Static: StaticConfig{Target: strings.TrimSpace(raw.Static.Target)},
		Log: LogConfig{
			File:  strings.TrimSpace(raw.Log.File),
			Level: strings.ToLower(strings.TrimSpace(raw.Log.Level)),
		},
	}

	if cfg.PollSeconds <= 0 {
		cfg.PollSeconds = defaultPollSeconds
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = defaultSourceKind
	}
	if cfg.Firebase.Path == "" {
		cfg.Firebase.Path = defaultFirebasePath
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = defaultRedisAddr
	}
	if cfg.Redis.Key == "" {
		cfg.Redis.Key = defaultRedisKey
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = defaultRedisChannel
	}
	if cfg.Log.File == "" {
		cfg.Log.File = defaultLogFile
	}
	cfg.Log.File = mustExpand(cfg.Log.File)
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields Load cannot default.
func (c Config) Validate() error {
	switch c.Source.Kind {
	case SourceFirebase, SourceRedis, SourceStatic:
	default:
		return fmt.Errorf("unknown source kind %q (want %s, %s or %s)", c.Source.Kind, SourceFirebase, SourceRedis, SourceStatic)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the zone target strings are interpreted in.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// PollInterval returns the source refresh cadence.
func (c Config) PollInterval() time.Duration {
	if c.PollSeconds <= 0 {
		return defaultPollSeconds * time.Second
	}
	return time.Duration(c.PollSeconds) * time.Second
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading tilde and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
