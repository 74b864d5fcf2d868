package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	require.NoError(t, err)
	return tokenStr
}

func echoIdentity(t *testing.T, got *Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		*got = id
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_doc_1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "doctor",
	}
	token := createTestToken(t, claims, testSigningKey)

	var got Identity
	h := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(echoIdentity(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Identity{UserID: "user_doc_1", Role: RoleDoctor}, got)
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	expired := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: "ADMIN",
	}, testSigningKey)
	wrongKey := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
		Role:             "ADMIN",
	}, []byte("another-key"))
	noRole := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}, testSigningKey)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
		{"no role", "Bearer " + noRole},
	}

	h := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestDevMiddleware(t *testing.T) {
	var got Identity
	h := DevMiddleware(echoIdentity(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, RoleAdmin, got.Role)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "pat_1")
	req.Header.Set("X-User-Role", "patient")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, Identity{UserID: "pat_1", Role: RolePatient}, got)
}

func TestRequireRoles(t *testing.T) {
	h := RequireRoles(RoleAdmin, RoleSystem)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: "n1", Role: RoleNurse}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(WithIdentity(req.Context(), System))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
