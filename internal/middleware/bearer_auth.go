package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/chamaservico/backend/internal/models"
)

type contextKey string

const ctxUsuarioKey contextKey = "usuario"

// TokenValidator validates a bearer token and returns the account id and papel.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// UsuarioFromCtx returns the authenticated account set by BearerAuth, or nil.
func UsuarioFromCtx(ctx context.Context) *models.Usuario {
	if u, ok := ctx.Value(ctxUsuarioKey).(*models.Usuario); ok {
		return u
	}
	return nil
}

// BearerAuth authenticates requests by validating the Authorization bearer
// token as a JWT. On success it sets the account (id + papel from the token
// claims) into request context.
func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}

			id, papel, err := validator.ValidateToken(r.Context(), raw)
			if err != nil || id == uuid.Nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUsuarioKey, &models.Usuario{ID: id, Papel: papel})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearer(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return ""
	}
	return strings.TrimSpace(authz[len(prefix):])
}
