package middleware

import "github.com/gin-gonic/gin"

// NoCache marks API responses uncacheable. Calendar data goes stale the
// moment anyone saves, so intermediaries must not serve it from cache.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
