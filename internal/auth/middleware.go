package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token shape issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type JWTConfig struct {
	SigningKey []byte
	Issuer     string
}

// JWTMiddleware verifies the bearer token and stores the resulting Identity
// on the request context. The claim is trusted verbatim once the signature checks out.
func JWTMiddleware(cfg JWTConfig) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				unauthorized(w, "invalid authorization format")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}

			role, ok := ParseRole(claims.Role)
			if !ok || claims.Subject == "" {
				unauthorized(w, "token is missing subject or role")
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: claims.Subject, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevMiddleware trusts X-User-ID and X-User-Role headers. Requests without
// them act as an admin. Never mount this outside dev.
func DevMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{UserID: "dev-admin", Role: RoleAdmin}
		if uid := r.Header.Get("X-User-ID"); uid != "" {
			id.UserID = uid
		}
		if raw := r.Header.Get("X-User-Role"); raw != "" {
			role, ok := ParseRole(raw)
			if !ok {
				unauthorized(w, "unknown role")
				return
			}
			id.Role = role
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireRoles rejects identities outside roles with 403.
func RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				unauthorized(w, "missing identity")
				return
			}
			if !id.HasRole(roles...) {
				writeAuthError(w, http.StatusForbidden, "forbidden", "role "+string(id.Role)+" may not perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, details string) {
	writeAuthError(w, http.StatusUnauthorized, "unauthenticated", details)
}

func writeAuthError(w http.ResponseWriter, status int, code, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "details": details})
}
