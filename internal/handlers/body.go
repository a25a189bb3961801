package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// readRawBody reads the request body as sent, for signature checks. It writes
// the error response itself and returns false when the body cannot be read.
func readRawBody(c *gin.Context, limit int64) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(c, http.StatusRequestEntityTooLarge, "Payload too large")
			return nil, false
		}
		ErrorResponse(c, http.StatusBadRequest, "Failed to read body")
		return nil, false
	}
	return body, true
}
