// Package config loads rentadmin settings from .env, an optional YAML file
// and RENTADMIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/goliatone/go-rentadmin/pkg/api"
	"github.com/goliatone/go-rentadmin/pkg/draft"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "RENTADMIN"

// Production is the app_env value that selects backend_prod.
const Production = "production"

// Config holds every setting.
type Config struct {
	AppEnv      string `mapstructure:"app_env"`
	BackendDev  string `mapstructure:"backend_dev"`
	BackendProd string `mapstructure:"backend_prod"`

	StateBackend string `mapstructure:"state_backend"`
	StatePath    string `mapstructure:"state_path"`
	RedisAddr    string `mapstructure:"redis_addr"`
	RedisPrefix  string `mapstructure:"redis_prefix"`

	PageSize       int           `mapstructure:"page_size"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	PreviewAddr    string        `mapstructure:"preview_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	SubmitEncoding        string `mapstructure:"submit_encoding"`
	DraftKeying           string `mapstructure:"draft_keying"`
	ClearDraftOnSubmit    bool   `mapstructure:"clear_draft_on_submit"`
	SurfaceFetchErrors    bool   `mapstructure:"surface_fetch_errors"`
	LegacyDecorUpdatePath bool   `mapstructure:"legacy_decor_update_path"`
	OpenAPIPath           string `mapstructure:"openapi_path"`
	TemplateDir           string `mapstructure:"template_dir"`
}

// Load reads .env (when present), then configFile or rentadmin.yaml from
// the working directory and the user config directory, then the
// environment. Later sources win.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("rentadmin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "rentadmin"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("backend_dev", "http://localhost:4000")
	v.SetDefault("backend_prod", "")
	v.SetDefault("state_backend", "file")
	v.SetDefault("state_path", defaultStatePath())
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_prefix", "rentadmin:")
	v.SetDefault("page_size", 10)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")
	v.SetDefault("preview_addr", "127.0.0.1:0")
	v.SetDefault("request_timeout", "0s")
	v.SetDefault("submit_encoding", "multipart")
	v.SetDefault("draft_keying", "type")
	v.SetDefault("clear_draft_on_submit", false)
	v.SetDefault("surface_fetch_errors", true)
	v.SetDefault("legacy_decor_update_path", false)
	v.SetDefault("openapi_path", "")
	v.SetDefault("template_dir", "")
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".rentadmin", "state.yaml")
	}
	return filepath.Join(dir, "rentadmin", "state.yaml")
}

// BackendURL is backend_prod in production and backend_dev otherwise.
func (c *Config) BackendURL() string {
	if c.AppEnv == Production {
		return c.BackendProd
	}
	return c.BackendDev
}

// Validate checks enumerated values and required settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackendURL()) == "" {
		return fmt.Errorf("config: backend url is empty for app_env %q", c.AppEnv)
	}
	switch c.StateBackend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("config: state_backend must be file, redis or memory, got %q", c.StateBackend)
	}
	if _, err := api.ParseEncoding(c.SubmitEncoding); err != nil {
		return fmt.Errorf("config: submit_encoding: %w", err)
	}
	if _, err := draft.ParseKeying(c.DraftKeying); err != nil {
		return fmt.Errorf("config: draft_keying: %w", err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config: log_format must be console or json, got %q", c.LogFormat)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: page_size must be positive, got %d", c.PageSize)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("config: request_timeout must not be negative")
	}
	return nil
}
