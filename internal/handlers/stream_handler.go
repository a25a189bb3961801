package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tullo/relay/internal/models"
	"github.com/tullo/relay/internal/service"
)

type StreamHandler struct {
	streams *service.StreamService
}

func NewStreamHandler(streams *service.StreamService) *StreamHandler {
	return &StreamHandler{streams: streams}
}

// GetStatus reports whether the stream is live. Store failures read as offline.
func (h *StreamHandler) GetStatus(c *gin.Context) {
	status, err := h.streams.Status(c.Request.Context())
	if err != nil {
		log.Printf("ERROR failed to get stream status: %v", err)
		c.JSON(http.StatusOK, gin.H{"live": false})
		return
	}

	c.JSON(http.StatusOK, status)
}

// SetStatus is the manual override used for testing and operator control.
func (h *StreamHandler) SetStatus(c *gin.Context) {
	var req models.SetStreamStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.streams.Override(c.Request.Context(), *req.Live); err != nil {
		log.Printf("ERROR failed to set stream status: %v", err)
		ErrorResponse(c, http.StatusInternalServerError, "Failed to update status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "live": *req.Live})
}
