// Package config loads settings from .virtualchef/config.yaml, an optional
// .env file and the environment. Command-line flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigPath    = "VIRTUALCHEF_CONFIG"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIModel   = "OPENAI_MODEL"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
)

// DefaultPath is where Load looks when no path is given.
var DefaultPath = filepath.Join(".virtualchef", "config.yaml")

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	User          UserConfig          `yaml:"user"`
	Store         StoreConfig         `yaml:"store"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Engine        EngineConfig        `yaml:"engine"`
	Timers        TimerConfig         `yaml:"timers"`
	Guard         GuardConfig         `yaml:"guard"`
	Log           LogConfig           `yaml:"log"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// UserConfig identifies the local user. An empty ID gets a random one.
type UserConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// StoreConfig selects where profiles, recipes, feedback and timers live.
// The redis backend keeps timers in Redis and everything else in SQLite.
type StoreConfig struct {
	Backend       string `yaml:"backend"`
	SQLitePath    string `yaml:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// OpenAIConfig configures the recipe generator. Without an API key the
// offline catalog is used.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// RequestsPerSecond <= 0 disables client-side pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// EngineConfig tunes turn handling.
type EngineConfig struct {
	GenerationTimeoutSeconds int `yaml:"generation_timeout_seconds"`
}

// TimerConfig tunes the timer poller.
type TimerConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

// GuardConfig points at an optional YAML rules file.
type GuardConfig struct {
	RulesFile string `yaml:"rules_file"`
}

// LogConfig selects the log destination and level (off, normal, verbose).
// File "stderr" logs to the console.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// ObservabilityConfig enables the metrics endpoint and turn tracing.
type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
	Trace       bool   `yaml:"trace"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:     BackendSQLite,
			SQLitePath:  filepath.Join(".virtualchef", "chef.db"),
			RedisAddr:   "localhost:6379",
			RedisPrefix: "virtualchef:",
		},
		OpenAI: OpenAIConfig{
			Model:             "gpt-4o-mini",
			Temperature:       0.7,
			MaxTokens:         1200,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Engine: EngineConfig{GenerationTimeoutSeconds: 30},
		Timers: TimerConfig{PollIntervalSeconds: 3},
		Log: LogConfig{
			File:  filepath.Join(".virtualchef", "chef.log"),
			Level: "normal",
		},
	}
}

// Load reads the config file at path (or VIRTUALCHEF_CONFIG, or
// DefaultPath), then applies environment overrides. A missing file is not
// an error; fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	path = resolvePath(path)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding what is already set. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func resolvePath(path string) string {
	if path != "" {
		return path
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return custom
	}
	return DefaultPath
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.OpenAI.APIKey, EnvOpenAIKey)
	set(&c.OpenAI.Model, EnvOpenAIModel)
	set(&c.OpenAI.BaseURL, EnvOpenAIBaseURL)
	set(&c.Store.RedisAddr, EnvRedisAddr)
	set(&c.Store.RedisPassword, EnvRedisPassword)
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite, BackendRedis:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required"))
		}
		if c.Store.Backend == BackendRedis && c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q must be memory, sqlite or redis", c.Store.Backend))
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("openai.temperature %.2f out of range 0-2", c.OpenAI.Temperature))
	}
	if c.OpenAI.MaxTokens < 0 {
		errs = append(errs, errors.New("openai.max_tokens must not be negative"))
	}
	if c.Engine.GenerationTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("engine.generation_timeout_seconds must be positive"))
	}
	if c.Timers.PollIntervalSeconds <= 0 {
		errs = append(errs, errors.New("timers.poll_interval_seconds must be positive"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "off", "normal", "verbose":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be off, normal or verbose", c.Log.Level))
	}
	return errors.Join(errs...)
}

// GenerationTimeout is Engine.GenerationTimeoutSeconds as a duration.
func (c Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Engine.GenerationTimeoutSeconds) * time.Second
}

// PollInterval is Timers.PollIntervalSeconds as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Timers.PollIntervalSeconds) * time.Second
}
