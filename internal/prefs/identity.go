package prefs

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// DisplayName returns who an identity token says the user is, for display
// only. The token is not verified. Falls back to "Signed in" when the
// payload cannot be read or names nobody.
func DisplayName(idToken string) string {
	const fallback = "Signed in"

	parts := strings.Split(idToken, ".")
	if len(parts) < 2 {
		return fallback
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return fallback
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return fallback
	}
	switch {
	case claims.Email != "":
		return claims.Email
	case claims.Name != "":
		return claims.Name
	default:
		return fallback
	}
}
