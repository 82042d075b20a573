package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/closeio/authalligator/internal/shared/logger"
	"github.com/closeio/authalligator/internal/shared/utils"
)

// APITokenMiddleware guards the account API with a static bearer token.
type APITokenMiddleware struct {
	token  string
	logger logger.Interface
}

func NewAPITokenMiddleware(token string, logger logger.Interface) *APITokenMiddleware {
	return &APITokenMiddleware{token: token, logger: logger}
}

// RequireToken rejects requests without the configured bearer token. With
// no token configured every request passes.
func (m *APITokenMiddleware) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.token == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(m.token)) != 1 {
			m.logger.Warnw("rejected api token", "client_ip", c.ClientIP(), "path", c.Request.URL.Path)
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid api token")
			c.Abort()
			return
		}

		c.Next()
	}
}
