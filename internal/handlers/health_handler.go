package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness. It does not touch the store.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "relay",
	})
}
