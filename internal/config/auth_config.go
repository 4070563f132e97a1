package config

import (
	"encoding/json"
	"fmt"
	"os"

	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"github.com/tidwall/jsonc"
)

const (
	defaultUserRole  = "TaskUser"
	defaultAdminRole = "TaskAdmin"
)

type AuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetAuthority() string
	GetRedirectURI() string
	GetPostLogoutRedirectURI() string
	GetTodoListAPIURI() string
	GetTodoListAPIScopes() []string
	GetUserRole() string
	GetAdminRole() string
}

// AuthFile mirrors auth-config.json. Comments and trailing commas are allowed.
type AuthFile struct {
	Credentials struct {
		ClientID     string `json:"clientId"`
		ClientSecret string `json:"clientSecret"`
		Authority    string `json:"authority"` // OIDC issuer, e.g. https://login.microsoftonline.com/<tenant>/v2.0
	} `json:"credentials"`
	Configuration struct {
		RedirectURI           string `json:"redirectUri"`
		PostLogoutRedirectURI string `json:"postLogoutRedirectUri"`
	} `json:"configuration"`
	Resources struct {
		TodoListAPI struct {
			ResourceURI    string   `json:"resourceUri"`
			ResourceScopes []string `json:"resourceScopes"`
		} `json:"todoListApi"`
	} `json:"resources"`
	Roles struct {
		User  string `json:"user"`
		Admin string `json:"admin"`
	} `json:"roles"`
}

var _ AuthConfig = (*AuthFile)(nil)

// LoadAuthConfig reads and validates an auth-config.json file.
func LoadAuthConfig(path string) (*AuthFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	authFile, err := ParseAuthConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return authFile, nil
}

// ParseAuthConfig strips JSONC comments from data before decoding it.
func ParseAuthConfig(data []byte) (*AuthFile, error) {
	var authFile AuthFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &authFile); err != nil {
		return nil, fmt.Errorf("parsing auth config: %w", err)
	}
	if err := authFile.Validate(); err != nil {
		return nil, err
	}
	return &authFile, nil
}

func (a *AuthFile) Validate() error {
	switch {
	case a.Credentials.ClientID == "":
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "credentials.clientId is required")
	case a.Credentials.Authority == "":
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "credentials.authority is required")
	case a.Resources.TodoListAPI.ResourceURI == "":
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "resources.todoListApi.resourceUri is required")
	}
	return nil
}

func (a *AuthFile) GetClientID() string {
	return a.Credentials.ClientID
}

func (a *AuthFile) GetClientSecret() string {
	return a.Credentials.ClientSecret
}

func (a *AuthFile) GetAuthority() string {
	return a.Credentials.Authority
}

func (a *AuthFile) GetRedirectURI() string {
	return a.Configuration.RedirectURI
}

func (a *AuthFile) GetPostLogoutRedirectURI() string {
	if a.Configuration.PostLogoutRedirectURI == "" {
		return "/"
	}
	return a.Configuration.PostLogoutRedirectURI
}

func (a *AuthFile) GetTodoListAPIURI() string {
	return a.Resources.TodoListAPI.ResourceURI
}

func (a *AuthFile) GetTodoListAPIScopes() []string {
	return a.Resources.TodoListAPI.ResourceScopes
}

func (a *AuthFile) GetUserRole() string {
	if a.Roles.User == "" {
		return defaultUserRole
	}
	return a.Roles.User
}

func (a *AuthFile) GetAdminRole() string {
	if a.Roles.Admin == "" {
		return defaultAdminRole
	}
	return a.Roles.Admin
}
