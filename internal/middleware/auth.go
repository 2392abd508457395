package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/plurahq/agencyhub/internal/auth"
	"github.com/plurahq/agencyhub/internal/models"
)

// ContextKeyPrincipal is where the verified Principal lives in
// gin.Context. Handlers read it through GetPrincipal rather than
// touching the key directly.
const ContextKeyPrincipal = "principal"

// AuthMiddleware validates the Bearer session token and stores the
// resulting Principal in the request context. Invalid or missing
// tokens abort the chain with 401; handlers behind this middleware can
// assume a principal is present.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ContextKeyPrincipal, claims.Principal())
		c.Next()
	}
}

// GetPrincipal extracts the Principal set by AuthMiddleware. The
// second return is false on routes that never went through the
// middleware; authenticated handlers treat that as a server bug, the
// webhook path treats it as "no ambient principal".
func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	val, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return models.Principal{}, false
	}
	p, ok := val.(models.Principal)
	if !ok {
		return models.Principal{}, false
	}
	return p, true
}
