package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tullo/relay/internal/auth"
)

// ServiceAuthMiddleware requires a bearer service token with scope. A nil
// token service leaves the route open.
func ServiceAuthMiddleware(tokens *auth.ServiceTokens, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(token, scope)
		if err != nil {
			log.Printf("WARN rejected service token from %s: %v", c.ClientIP(), err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("service_subject", claims.Subject)
		c.Next()
	}
}

// AdminAuthMiddleware requires HTTP basic auth against the admin credentials.
// Unconfigured credentials leave the route open.
func AdminAuthMiddleware(creds auth.AdminCredentials) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !creds.Enabled() {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || !creds.Check(user, pass) {
			c.Header("WWW-Authenticate", `Basic realm="relay-admin"`)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
