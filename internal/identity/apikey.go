package identity

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// KeyRole is the role claim carried by a JWT-format API key.
type KeyRole string

const (
	RoleAnon        KeyRole = "anon"
	RoleServiceRole KeyRole = "service_role"
	// RoleOpaque marks keys that are not JWTs and carry no readable role.
	RoleOpaque KeyRole = ""
)

// InspectAPIKey reads the role claim of a JWT-format key without verifying
// its signature; only the identity service holds the secret. Opaque keys
// return RoleOpaque.
func InspectAPIKey(key string) (KeyRole, error) {
	if strings.Count(key, ".") != 2 {
		return RoleOpaque, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return RoleOpaque, fmt.Errorf("parse api key: %w", err)
	}
	role, _ := claims["role"].(string)
	return KeyRole(role), nil
}
