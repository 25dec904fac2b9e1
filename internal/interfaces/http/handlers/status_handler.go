package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	svcerrors "github.com/turtacn/statusservice/pkg/errors"
)

// StatusHandler answers with whatever status code the caller asks for.
type StatusHandler struct{}

func NewStatusHandler() *StatusHandler {
	return &StatusHandler{}
}

// Respond handles ANY /status/:code[?message=].
func (h *StatusHandler) Respond(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code < 100 || code > 599 {
		sendError(c, svcerrors.ErrInvalidRequest("status code must be between 100 and 599"))
		return
	}
	// net/http sends 1xx other than 101 as interim headers followed by a 200
	if code < 200 && code != http.StatusSwitchingProtocols {
		sendError(c, svcerrors.ErrInvalidRequest("informational status codes cannot be a final response"))
		return
	}

	message := c.Query("message")
	if message == "" {
		message = http.StatusText(code)
	}
	if message == "" {
		message = "Custom status " + strconv.Itoa(code)
	}

	// 101, 204 and 304 carry no body
	if code < 200 || code == http.StatusNoContent || code == http.StatusNotModified {
		c.Status(code)
		return
	}
	c.JSON(code, gin.H{"status": code, "message": message})
}
