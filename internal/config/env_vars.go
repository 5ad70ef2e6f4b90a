package config

import (
	"os"
	"strings"
	"time"
)

const (
	appNameVar        = "APP_NAME"
	envVar            = "ENV"
	logLevelVar       = "LOG_LEVEL"
	folderEnvVar      = "FOLDER"
	baseURLVar        = "API_BASE_URL"
	requestTimeoutVar = "REQUEST_TIMEOUT"
	userAgentVar      = "USER_AGENT"
	storeBackendVar   = "SESSION_STORE"
	redisURLVar       = "REDIS_URL"
	sessionKeyVar     = "SESSION_KEY"
	sessionTTLVar     = "SESSION_TTL"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Inventory Admin")
}

func (EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(envVar, "DEV"))
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, defaultDataFolder())
}

// GetBaseURL returns the REST backend root, e.g. "http://localhost:8080/api".
// It also determines the origin the persisted session is scoped to.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080/api")
}

// GetRequestTimeout returns the HTTP client timeout; zero leaves timeouts to the transport.
func (EnvVars) GetRequestTimeout() time.Duration {
	return GetDuration(requestTimeoutVar, 0)
}

func (EnvVars) GetUserAgent() string {
	return GetEnv(userAgentVar, "invadmin")
}

func (EnvVars) GetStoreBackend() string {
	return strings.ToLower(GetEnv(storeBackendVar, StoreFile))
}

func (EnvVars) GetRedisURL() string {
	return GetEnv(redisURLVar, "redis://localhost:6379/0")
}

// GetSessionKey returns the hex encoded key used to seal the session file.
// Empty means the file is stored in clear text.
func (EnvVars) GetSessionKey() string {
	return GetEnv(sessionKeyVar, "")
}

func (EnvVars) GetSessionTTL() time.Duration {
	return GetDuration(sessionTTLVar, 7*24*time.Hour)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func defaultDataFolder() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "./data"
	}
	return dir + string(os.PathSeparator) + "invadmin"
}
