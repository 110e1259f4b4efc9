package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
)

// VerifyBearerToken verifies the bearer token of a bridge request
func VerifyBearerToken(r *http.Request, expectedToken string) error {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return fmt.Errorf("missing Authorization header")
	}

	// "Bearer <token>"
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found {
		return fmt.Errorf("invalid Authorization header format")
	}

	if !strings.EqualFold(scheme, "Bearer") {
		return fmt.Errorf("invalid authorization scheme: %s", scheme)
	}

	if !constantTimeCompare(strings.TrimSpace(token), expectedToken) {
		return fmt.Errorf("invalid bearer token")
	}

	return nil
}

func constantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
