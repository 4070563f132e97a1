package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-todo-spa/internal/config"
	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"github.com/stretchr/testify/require"
)

const sampleAuthConfig = `{
	// App registration
	"credentials": {
		"clientId": "spa-client",
		"authority": "https://login.example.com/tenant-1/v2.0",
	},
	"configuration": {
		"redirectUri": "http://localhost:8080/callback"
	},
	"resources": {
		"todoListApi": {
			"resourceUri": "https://api.example.com/api/todolist",
			/* requested when signing in */
			"resourceScopes": ["api://todo/access_as_user"]
		}
	}
}`

func TestParseAuthConfig(t *testing.T) {
	t.Run("jsonc with defaults", func(t *testing.T) {
		cfg, err := config.ParseAuthConfig([]byte(sampleAuthConfig))
		require.NoError(t, err)
		require.Equal(t, "spa-client", cfg.GetClientID())
		require.Equal(t, "https://login.example.com/tenant-1/v2.0", cfg.GetAuthority())
		require.Equal(t, "https://api.example.com/api/todolist", cfg.GetTodoListAPIURI())
		require.Equal(t, []string{"api://todo/access_as_user"}, cfg.GetTodoListAPIScopes())
		require.Equal(t, "TaskUser", cfg.GetUserRole())
		require.Equal(t, "TaskAdmin", cfg.GetAdminRole())
		require.Equal(t, "/", cfg.GetPostLogoutRedirectURI())
	})

	t.Run("missing resource uri", func(t *testing.T) {
		_, err := config.ParseAuthConfig([]byte(`{"credentials":{"clientId":"a","authority":"b"}}`))
		require.Error(t, err)
		require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
		require.Contains(t, err.Error(), "resourceUri")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := config.ParseAuthConfig([]byte(`{"credentials":`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "parsing auth config")
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth-config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleAuthConfig), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_MAX_AGE", "30m")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.GetPort())
	require.Equal(t, "spa-client", cfg.GetClientID())
	require.Equal(t, "30m0s", cfg.GetSessionMaxAge().String())
	require.True(t, cfg.GetAllowedOrigins().IsAllowedOrigin("http://b.example"))
	require.False(t, cfg.GetAllowedOrigins().IsAllowedOrigin("http://c.example"))

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
