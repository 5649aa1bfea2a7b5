// Package config loads slidesmith settings from an optional YAML file,
// SLIDESMITH_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the loader.
const EnvPrefix = "SLIDESMITH"

// Config is the full runtime configuration.
type Config struct {
	Provider   Provider   `mapstructure:"provider"`
	Matcher    Matcher    `mapstructure:"matcher"`
	Generation Generation `mapstructure:"generation"`
	Store      Store      `mapstructure:"store"`
	StorageDir string     `mapstructure:"storage_dir"`
	OutputDir  string     `mapstructure:"output_dir"`
	LogLevel   string     `mapstructure:"log_level"`
}

// Provider configures the OpenAI-compatible API.
type Provider struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Dimensions     int           `mapstructure:"dimensions"`
	ChatModel      string        `mapstructure:"chat_model"`
	Temperature    float32       `mapstructure:"temperature"`
	CacheSize      int           `mapstructure:"cache_size"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Matcher configures slide selection.
type Matcher struct {
	Threshold     float64 `mapstructure:"threshold"`
	CategoryBoost float64 `mapstructure:"category_boost"`
}

// Generation configures replacement generation.
type Generation struct {
	MaxRetries int `mapstructure:"max_retries"`
}

// Store selects the persistence driver.
type Store struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn"`
}

var defaults = map[string]any{
	"provider.base_url":        "",
	"provider.api_key":         "",
	"provider.embedding_model": "text-embedding-ada-002",
	"provider.dimensions":      0,
	"provider.chat_model":      "gpt-4o",
	"provider.temperature":     0.7,
	"provider.cache_size":      10000,
	"provider.timeout":         "60s",
	"matcher.threshold":        0.7,
	"matcher.category_boost":   1.2,
	"generation.max_retries":   3,
	"store.driver":             "sqlite",
	"store.dsn":                "slidesmith.db",
	"storage_dir":              "storage",
	"output_dir":               "output",
	"log_level":                "info",
}

// Loader reads configuration. The zero value is not usable; call NewLoader.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader with defaults and environment bindings.
// OPENAI_API_KEY and DATABASE_URI are honoured when the prefixed variables
// are unset.
func NewLoader() *Loader {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// BindEnv only fails without a key.
	_ = v.BindEnv("provider.api_key", EnvPrefix+"_PROVIDER_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("provider.base_url", EnvPrefix+"_PROVIDER_BASE_URL", "OPENAI_BASE_URL")
	_ = v.BindEnv("store.dsn", EnvPrefix+"_STORE_DSN", "DATABASE_URI")
	return &Loader{v: v}
}

// BindFlag makes flag override key when it is set on the command line.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("config: no flag for %q", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads the YAML file at path, when path is not empty, and returns the
// merged configuration.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load is NewLoader().Load(path).
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// LoadDotEnv loads variables from .env files into the environment without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	if c.Matcher.Threshold < -1 || c.Matcher.Threshold > 1 {
		problems = append(problems, fmt.Sprintf("matcher.threshold %v outside [-1, 1]", c.Matcher.Threshold))
	}
	if c.Matcher.CategoryBoost <= 0 {
		problems = append(problems, "matcher.category_boost must be positive")
	}
	if c.Generation.MaxRetries < 1 {
		problems = append(problems, "generation.max_retries must be at least 1")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}
	if c.Provider.Dimensions < 0 {
		problems = append(problems, "provider.dimensions must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
