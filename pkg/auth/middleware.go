package auth

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Authenticator guards the bridge endpoints with a shared bearer token
type Authenticator struct {
	token  string
	logger *logrus.Logger
}

// NewAuthenticator creates a new Authenticator. An empty token disables authentication.
func NewAuthenticator(token string, logger *logrus.Logger) *Authenticator {
	return &Authenticator{
		token:  token,
		logger: logger,
	}
}

// Enabled reports whether requests must carry a token
func (a *Authenticator) Enabled() bool {
	return a.token != ""
}

// Middleware returns an HTTP middleware that rejects unauthenticated requests
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		if err := VerifyBearerToken(r, a.token); err != nil {
			a.logger.WithFields(logrus.Fields{
				"remote_addr": r.RemoteAddr,
				"path":        r.URL.Path,
				"error":       err.Error(),
			}).Warn("Authentication failed")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication failed"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
