package config

import "fmt"

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	AuthConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetAuthConfigPath() string
	GetRedisURL() string
	GetLogLevel() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	*AuthFile
}

// Load reads the auth-config.json at path and combines it with the
// environment backed settings.
func Load(path string) (Config, error) {
	authFile, err := LoadAuthConfig(path)
	if err != nil {
		return nil, fmt.Errorf("[config Load] %w", err)
	}
	return mainConfig{AuthFile: authFile}, nil
}

// New builds a Config from an already loaded auth file.
func New(authFile *AuthFile) Config {
	return mainConfig{AuthFile: authFile}
}
