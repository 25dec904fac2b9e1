package handlers

import (
	"github.com/gin-gonic/gin"

	svcerrors "github.com/turtacn/statusservice/pkg/errors"
)

// sendError writes err as a JSON error body.
func sendError(c *gin.Context, err error) {
	status, body := svcerrors.ToErrorResponse(err)
	c.AbortWithStatusJSON(status, gin.H{"error": body.Error})
}
