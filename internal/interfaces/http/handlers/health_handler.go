package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/statusservice/internal/domain/service"
	"github.com/turtacn/statusservice/internal/infrastructure/clock"
	"github.com/turtacn/statusservice/pkg/logger"
)

// Check tests one dependency.
type Check func(ctx context.Context) error

// HealthHandler provides the health check endpoint.
type HealthHandler struct {
	checks  map[string]Check
	counter service.Counter
	clock   clock.Clock
	log     logger.Logger
}

// NewHealthHandler creates a HealthHandler. counter may be nil.
func NewHealthHandler(checks map[string]Check, counter service.Counter, clk clock.Clock, log logger.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, counter: counter, clock: clk, log: log}
}

// HealthCheck handles GET /health.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	results := h.performChecks(ctx)

	status, code := "OK", http.StatusOK
	for _, r := range results {
		if r != "ok" {
			status, code = "DEGRADED", http.StatusServiceUnavailable
			break
		}
	}

	body := gin.H{
		"status": status,
		"time":   h.clock.Now().UTC().Format(time.RFC3339),
		"checks": results,
	}
	if h.counter != nil {
		body["overflow_sequence"] = h.counter.Current(ctx)
	}
	c.JSON(code, body)
}

func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]string, len(h.checks))

	for name, check := range h.checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			status := "ok"
			if err := check(ctx); err != nil {
				status = "error: " + err.Error()
				h.log.Warn(ctx, "health check failed", logger.String("check", name), logger.Error(err))
			}
			mu.Lock()
			results[name] = status
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()
	return results
}
