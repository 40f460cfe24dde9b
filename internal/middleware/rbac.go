package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/rollcall-api/pkg/errors"
	"github.com/noah-isme/rollcall-api/pkg/response"
)

var errForbidden = appErrors.New("FORBIDDEN", http.StatusForbidden, "token does not allow changes")

// RequireWrite rejects mutating requests from read-only tokens. Safe methods pass through.
func RequireWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.Role.CanWrite() {
			response.Error(c, errForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
