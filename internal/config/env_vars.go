package config

import "os"

const (
	appNameVar       = "APP_NAME"
	apiKeyVar        = "PIAZZA_API_KEY"
	providerAppIDVar = "PIAZZA_PROVIDER_APP_ID"
	backendURLVar    = "PIAZZA_BACKEND_URL"
	storagePathVar   = "PIAZZA_STORAGE_PATH"
	devModeVar       = "PIAZZA_DEV_MODE"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Piazza SDK")
}

func (EnvVars) GetAPIKey() string {
	return GetEnv(apiKeyVar, "")
}

func (EnvVars) GetProviderAppID() string {
	return GetEnv(providerAppIDVar, "")
}

// GetBackendURL returns the backend base URL override. Empty means the
// default for the environment (dev or prod) is used.
func (EnvVars) GetBackendURL() string {
	return GetEnv(backendURLVar, "")
}

func (EnvVars) GetStoragePath() string {
	return GetEnv(storagePathVar, "./piazza.db")
}

func (EnvVars) GetDevMode() bool {
	return GetEnv(devModeVar, "false") == "true"
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
