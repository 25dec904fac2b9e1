package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/statusservice/internal/application/admission"
	"github.com/turtacn/statusservice/internal/infrastructure/clock"
	"github.com/turtacn/statusservice/pkg/constants"
	"github.com/turtacn/statusservice/pkg/logger"
)

// ClientID derives the admission identifier from the connection's remote
// address. Forwarding headers are ignored.
func ClientID(r *http.Request) string {
	addr := r.RemoteAddr
	if addr == "" {
		return constants.UnknownClient
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" {
		return constants.UnknownClient
	}
	return host
}

// Admission wraps the whole request in the admission pipeline. The log
// record is emitted from a deferred call so that rejections, handler
// panics and client disconnects are all logged.
func Admission(p *admission.Pipeline, clk clock.Clock, maxBody int64, log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("admission_middleware")
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := ClientID(c.Request)
		c.Set(string(constants.ContextKeyClientID), id)

		ex := admission.Exchange{
			ReceivedAt: clk.Now(),
			ClientID:   id,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			UserAgent:  c.Request.UserAgent(),
		}

		defer func() {
			if r := recover(); r != nil {
				log.Error(ctx, "handler panicked", fmt.Errorf("panic: %v", r),
					logger.String("ip", id),
					logger.String("path", ex.Path),
				)
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				} else {
					c.Abort()
				}
				ex.StatusCode = http.StatusInternalServerError
			} else {
				ex.StatusCode = c.Writer.Status()
			}
			p.Emit(context.WithoutCancel(ctx), ex)
		}()

		body, tooLarge := readBody(c, maxBody)
		ex.Body = body

		if p.Exempt(ex.Path) {
			p.RecordExempt()
		} else if v := p.Check(ctx, id); !v.Admitted() {
			c.AbortWithStatusJSON(v.Status(), v.Body())
			return
		}

		if tooLarge {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.Next()
	}
}

// readBody buffers the request body and puts it back for the handler.
func readBody(c *gin.Context, maxBody int64) ([]byte, bool) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil, false
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBody))
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	var maxErr *http.MaxBytesError
	return body, errors.As(err, &maxErr)
}
