// Package auth holds the admin JWT helpers shared by the game and socket services.
package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth"
)

const (
	RoleAdmin = "admin"
	roleClaim = "role"
)

var ErrNotAdmin = errors.New("token does not carry the admin role")

// New returns the HS256 signer/verifier for JWT_SECRET_KEY.
func New(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// VerifyAdmin checks signature, expiry and role of a raw token string.
func VerifyAdmin(ja *jwtauth.JWTAuth, token string) error {
	t, err := jwtauth.VerifyToken(ja, token)
	if err != nil {
		return err
	}
	role, ok := t.Get(roleClaim)
	if !ok || role != RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

// RequireAdmin runs after jwtauth.Verifier and jwtauth.Authenticator and
// rejects verified tokens that are not admin tokens.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || claims[roleClaim] != RoleAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
