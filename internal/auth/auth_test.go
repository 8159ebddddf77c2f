package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, ja *jwtauth.JWTAuth, role string, ttl time.Duration) string {
	t.Helper()
	claims := map[string]interface{}{"sub": "65f0c0ffee", "role": role}
	jwtauth.SetExpiryIn(claims, ttl)
	_, s, err := ja.Encode(claims)
	require.NoError(t, err)
	return s
}

func TestVerifyAdmin(t *testing.T) {
	ja := New("secret")

	assert.NoError(t, VerifyAdmin(ja, token(t, ja, RoleAdmin, time.Hour)))
	assert.ErrorIs(t, VerifyAdmin(ja, token(t, ja, "player", time.Hour)), ErrNotAdmin)
	assert.Error(t, VerifyAdmin(ja, token(t, ja, RoleAdmin, -time.Hour)), "expired")
	assert.Error(t, VerifyAdmin(New("other"), token(t, ja, RoleAdmin, time.Hour)), "wrong key")
	assert.Error(t, VerifyAdmin(ja, "not-a-jwt"))
}

func TestRequireAdmin(t *testing.T) {
	ja := New("secret")

	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(ja))
	r.Use(jwtauth.Authenticator)
	r.Use(RequireAdmin)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"player token", "Bearer " + token(t, ja, "player", time.Hour), http.StatusForbidden},
		{"admin token", "Bearer " + token(t, ja, RoleAdmin, time.Hour), http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
