package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
}

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetUserAgent() string
}

type SessionConfig interface {
	GetStoreBackend() string
	GetRedisURL() string
	GetSessionKey() string
	GetSessionTTL() time.Duration
}

// Session store backends
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
