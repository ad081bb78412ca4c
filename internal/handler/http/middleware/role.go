package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// RequireOperator requires an owner or manager role.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, auth.ErrOperatorRequired)
			return
		}

		roleStr, ok := claims["role"].(string)
		if !ok || !jwt.Role(roleStr).CanOperate() {
			response.HandleError(w, auth.ErrOperatorRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
