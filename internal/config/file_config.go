package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	appNameKey        = "app.name"
	envKey            = "app.env"
	logLevelKey       = "app.log_level"
	dataFolderKey     = "app.data_folder"
	baseURLKey        = "api.base_url"
	requestTimeoutKey = "api.request_timeout"
	userAgentKey      = "api.user_agent"
	storeBackendKey   = "session.store"
	redisURLKey       = "session.redis_url"
	sessionKeyKey     = "session.key"
	sessionTTLKey     = "session.ttl"
)

// FileConfig is a Config read from a YAML file, with environment variables
// taking precedence over file values.
type FileConfig struct {
	App     AppParams     `mapstructure:"app" validate:"required"`
	API     APIParams     `mapstructure:"api" validate:"required"`
	Session SessionParams `mapstructure:"session" validate:"required"`
}

type AppParams struct {
	Name       string `mapstructure:"name"`
	Env        string `mapstructure:"env" validate:"omitempty,oneof=DEV TEST PROD dev test prod"`
	LogLevel   string `mapstructure:"log_level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	DataFolder string `mapstructure:"data_folder"`
}

type APIParams struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=0"`
	UserAgent      string        `mapstructure:"user_agent"`
}

type SessionParams struct {
	Store    string        `mapstructure:"store" validate:"omitempty,oneof=file redis memory"`
	RedisURL string        `mapstructure:"redis_url" validate:"required_if=Store redis"`
	Key      string        `mapstructure:"key" validate:"omitempty,hexadecimal,len=64"`
	TTL      time.Duration `mapstructure:"ttl" validate:"min=0"`
}

var _ Config = (*FileConfig)(nil)

func envBindings() map[string]string {
	return map[string]string{
		appNameKey:        appNameVar,
		envKey:            envVar,
		logLevelKey:       logLevelVar,
		dataFolderKey:     folderEnvVar,
		baseURLKey:        baseURLVar,
		requestTimeoutKey: requestTimeoutVar,
		userAgentKey:      userAgentVar,
		storeBackendKey:   storeBackendVar,
		redisURLKey:       redisURLVar,
		sessionKeyKey:     sessionKeyVar,
		sessionTTLKey:     sessionTTLVar,
	}
}

// Load reads the config file at path, overlays the environment and validates the result.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := EnvVars{}
	v.SetDefault(appNameKey, defaults.GetAppName())
	v.SetDefault(envKey, "DEV")
	v.SetDefault(logLevelKey, "info")
	v.SetDefault(dataFolderKey, defaultDataFolder())
	v.SetDefault(baseURLKey, "http://localhost:8080/api")
	v.SetDefault(userAgentKey, "invadmin")
	v.SetDefault(storeBackendKey, StoreFile)
	v.SetDefault(sessionTTLKey, "168h")

	for configKey, env := range envBindings() {
		if err := v.BindEnv(configKey, env); err != nil {
			return nil, fmt.Errorf("failed to bind env var %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *FileConfig) GetAppName() string    { return c.App.Name }
func (c *FileConfig) GetEnv() string        { return strings.ToUpper(c.App.Env) }
func (c *FileConfig) GetLogLevel() string   { return c.App.LogLevel }
func (c *FileConfig) GetDataFolder() string { return c.App.DataFolder }

func (c *FileConfig) GetBaseURL() string               { return c.API.BaseURL }
func (c *FileConfig) GetRequestTimeout() time.Duration { return c.API.RequestTimeout }
func (c *FileConfig) GetUserAgent() string             { return c.API.UserAgent }

func (c *FileConfig) GetStoreBackend() string     { return strings.ToLower(c.Session.Store) }
func (c *FileConfig) GetRedisURL() string         { return c.Session.RedisURL }
func (c *FileConfig) GetSessionKey() string       { return c.Session.Key }
func (c *FileConfig) GetSessionTTL() time.Duration { return c.Session.TTL }
