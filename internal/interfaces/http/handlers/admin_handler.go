package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/statusservice/internal/domain/service"
	"github.com/turtacn/statusservice/internal/infrastructure/monitoring"
	"github.com/turtacn/statusservice/pkg/constants"
	svcerrors "github.com/turtacn/statusservice/pkg/errors"
	"github.com/turtacn/statusservice/pkg/logger"
)

// AdminHandler serves the operator endpoints: logs, blocklist, unblock and limits.
type AdminHandler struct {
	sink    service.LogSink
	blocks  service.BlockStore
	limiter service.RateLimiter
	metrics *monitoring.Metrics
	log     logger.Logger
}

// NewAdminHandler creates an AdminHandler. limiter and metrics may be nil.
func NewAdminHandler(sink service.LogSink, blocks service.BlockStore, limiter service.RateLimiter, metrics *monitoring.Metrics, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		sink:    sink,
		blocks:  blocks,
		limiter: limiter,
		metrics: metrics,
		log:     log.WithComponent("admin_handler"),
	}
}

// Logs handles GET /logs?limit=N.
func (h *AdminHandler) Logs(c *gin.Context) {
	limit := constants.DefaultLogQueryLimit
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > constants.MaxLogQueryLimit {
			sendError(c, svcerrors.ErrInvalidRequest(fmt.Sprintf("limit must be an integer between 1 and %d", constants.MaxLogQueryLimit)))
			return
		}
		limit = n
	}

	logs, err := h.sink.Query(c.Request.Context(), limit)
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to query request logs", err)
		sendError(c, svcerrors.Wrap(err, svcerrors.ErrCodePersistence, "query failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// Blocklist handles GET /blocklist. Entries past their TTL are listed until
// a lookup evicts them.
func (h *AdminHandler) Blocklist(c *gin.Context) {
	entries := h.blocks.ListAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"blocked_ips": entries, "count": len(entries)})
}

// Unblock handles GET /unblock?ip=X.
func (h *AdminHandler) Unblock(c *gin.Context) {
	ip := c.Query("ip")
	if ip == "" {
		sendError(c, svcerrors.ErrInvalidRequest("ip parameter is required"))
		return
	}

	existed, err := h.blocks.Unban(c.Request.Context(), ip)
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to unban", err, logger.String("ip", ip))
		sendError(c, err)
		return
	}
	if !existed {
		sendError(c, svcerrors.ErrNotFound("IP not found in blocklist"))
		return
	}

	if h.metrics != nil {
		h.metrics.Unbans.Inc()
	}
	h.log.Info(c.Request.Context(), "client unbanned", logger.String("ip", ip))
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("IP %s unblocked", ip)})
}

// Limits handles GET /limits?ip=X and reports the live window sizes.
func (h *AdminHandler) Limits(c *gin.Context) {
	ip := c.Query("ip")
	if ip == "" {
		sendError(c, svcerrors.ErrInvalidRequest("ip parameter is required"))
		return
	}
	if h.limiter == nil {
		sendError(c, svcerrors.ErrNotFound("rate limiting is disabled"))
		return
	}
	entry, banned, err := h.blocks.Lookup(c.Request.Context(), ip)
	if err != nil {
		h.log.Warn(c.Request.Context(), "ban lookup failed", logger.Error(err), logger.String("ip", ip))
	}

	resp := gin.H{
		"ip":      ip,
		"windows": h.limiter.Stats(ip),
		"limits": gin.H{
			"minute":      constants.ShortWindowLimit,
			"ten_minutes": constants.LongWindowLimit,
		},
		"banned": banned,
	}
	if banned {
		resp["ban"] = entry
	}
	c.JSON(http.StatusOK, resp)
}
