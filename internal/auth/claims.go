package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

var errMissingIDToken = errors.New("token response has no id_token")

type idTokenClaims struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
}

// parseIDToken reads the claims segment of a JWT. The signature is not
// verified; the token comes straight from the provider's token endpoint.
func parseIDToken(raw string) (idTokenClaims, error) {
	if raw == "" {
		return idTokenClaims{}, errMissingIDToken
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return idTokenClaims{}, fmt.Errorf("malformed id_token: %d segments", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return idTokenClaims{}, fmt.Errorf("failed to decode id_token payload: %w", err)
	}

	var claims idTokenClaims
	if err := sonic.Unmarshal(payload, &claims); err != nil {
		return idTokenClaims{}, fmt.Errorf("failed to parse id_token claims: %w", err)
	}

	if claims.Email == "" {
		claims.Email = claims.PreferredUsername
	}

	return claims, nil
}
