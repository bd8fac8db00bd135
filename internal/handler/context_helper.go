package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/oneid-dev/oneid-api/internal/models"
	"github.com/oneid-dev/oneid-api/pkg/middleware/requestid"
)

// requestMeta captures the per-request context the services receive
// explicitly instead of reading ambient state.
func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		RequestID: requestid.Value(c),
	}
}
