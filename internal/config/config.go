package config

// Config exposes the environment-driven settings consumed by the demo
// binary.
type Config interface {
	GetAppName() string
	GetAPIKey() string
	GetProviderAppID() string
	GetBackendURL() string
	GetStoragePath() string
	GetDevMode() bool
	GetEnv() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
