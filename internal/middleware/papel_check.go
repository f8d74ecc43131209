package middleware

import (
	"fmt"
	"net/http"
)

// RequirePapel rejects requests whose authenticated account does not hold the
// given papel. Dispute resolution routes use it to keep moderation endpoints
// off-limits to the contract parties.
func RequirePapel(papel string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UsuarioFromCtx(r.Context())
			if u == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if u.Papel != papel {
				http.Error(w, fmt.Sprintf(`{"error":"requires papel %q"}`, papel), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
