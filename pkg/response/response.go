package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

// Envelope is the uniform response contract: business outcomes ride on
// success/message, never on HTTP status codes.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Message   string      `json:"message"`
	Timestamp int64       `json:"timestamp"`
}

// OK sends a success envelope.
func OK(c *gin.Context, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// Error sends a failure envelope. Business failures stay HTTP 200; only the
// transport decides otherwise, never this layer.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, Envelope{
		Success:   false,
		Data:      nil,
		Message:   appErr.Message,
		Timestamp: time.Now().Unix(),
	})
}
