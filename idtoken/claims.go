package idtoken

import (
	"encoding/json"
	"fmt"
	"slices"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-todo-spa/internal/errors"
	"github.com/jrsteele09/go-todo-spa/internal/utils"
)

// Claims holds the ID token claims this application reads.
// Roles is nil when the token carries no roles claim at all; a present but
// empty claim decodes to an empty, non-nil slice.
type Claims struct {
	Subject           string   `json:"sub"`
	Name              string   `json:"name,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Email             string   `json:"email,omitempty"`
	Nonce             string   `json:"nonce,omitempty"`
	Roles             []string `json:"roles"`
}

// HasRolesClaim reports whether the roles claim was present in the token.
func (c Claims) HasRolesClaim() bool {
	return c.Roles != nil
}

// HasRole reports whether role is one of the granted roles.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// DisplayName picks the friendliest identifier available.
func (c Claims) DisplayName() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.PreferredUsername != "":
		return c.PreferredUsername
	case c.Email != "":
		return c.Email
	}
	return c.Subject
}

// UnmarshalJSON reads the roles claim leniently: absent or null leaves Roles
// nil, a single string becomes a one element list and a list keeps its string
// entries. Any other value counts as a present claim granting no roles.
func (c *Claims) UnmarshalJSON(data []byte) error {
	type plainClaims Claims
	var raw struct {
		plainClaims
		Roles json.RawMessage `json:"roles"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Claims(raw.plainClaims)
	c.Roles = decodeRoles(raw.Roles)
	return nil
}

func decodeRoles(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return []string{}
	}
	switch roles := value.(type) {
	case nil:
		return nil
	case string:
		return []string{roles}
	case []any:
		return utils.ToStringSlice(roles)
	}
	return []string{}
}

// Decode reads the claims of a compact ID token without checking its
// signature. Only use it on tokens handed over by the identity provider
// library that already verified them.
func Decode(rawToken string) (Claims, error) {
	parser := jwtlib.NewParser()
	_, parts, err := parser.ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidIDToken, err)
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidIDToken, err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidIDToken, err)
	}
	return claims, nil
}
