package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the storefront and stream overlay origins.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && OriginAllowed(allowedOrigins, origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Cache-Control")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// OriginAllowed supports exact matches, "*" and wildcard patterns like *.example.com
func OriginAllowed(patterns []string, origin string) bool {
	for _, pattern := range patterns {
		if matchOrigin(pattern, origin) {
			return true
		}
	}
	return false
}

func matchOrigin(pattern, origin string) bool {
	if pattern == "*" || pattern == origin {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		// strip scheme from origin if present
		originHost := origin
		if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
			originHost = u.Hostname()
		}
		patHost := strings.TrimPrefix(pattern, "*.")
		return strings.HasSuffix(originHost, "."+patHost)
	}
	return false
}
