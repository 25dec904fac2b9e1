// Package admission composes the ban list, the rate limiter, the overflow
// writer and the log sink into the per-request admission flow.
package admission

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/internal/domain/service"
	"github.com/turtacn/statusservice/internal/infrastructure/monitoring"
	"github.com/turtacn/statusservice/pkg/constants"
	"github.com/turtacn/statusservice/pkg/logger"
)

// Verdict is the result of the admission checks for one request.
type Verdict struct {
	Outcome  models.Outcome
	Decision models.Decision
	ClientID string
	// Reason is the stored ban reason when Outcome is RejectedBanned by the block check.
	Reason string
	// blocked distinguishes an existing ban from a ban written by this request.
	blocked bool
}

// Admitted reports whether the request may reach its handler.
func (v Verdict) Admitted() bool {
	return v.Outcome != models.OutcomeRejectedBanned && v.Outcome != models.OutcomeRejectedThrottled
}

// Status returns the HTTP status of a rejection, or 0 when admitted.
func (v Verdict) Status() int {
	if v.Admitted() {
		return 0
	}
	return http.StatusTooManyRequests
}

// Body returns the JSON body of a rejection, or nil when admitted.
func (v Verdict) Body() map[string]interface{} {
	switch {
	case v.blocked:
		return map[string]interface{}{
			"error":  "IP address is blocked",
			"reason": v.Reason,
			"ip":     v.ClientID,
		}
	case v.Outcome == models.OutcomeRejectedBanned:
		return map[string]interface{}{"error": "Rate limit exceeded - IP blocked"}
	case v.Outcome == models.OutcomeRejectedThrottled:
		return map[string]interface{}{"error": "Rate limit exceeded"}
	}
	return nil
}

// Exchange is what the pipeline captures about a finished request.
type Exchange struct {
	ReceivedAt time.Time
	ClientID   string
	Method     string
	Path       string
	UserAgent  string
	StatusCode int
	Body       []byte
}

// Options tunes the pipeline.
type Options struct {
	// ExemptPaths bypass the block and rate checks. An entry ending in "/*"
	// matches every path under that prefix.
	ExemptPaths []string
	// OverflowThreshold is the body size at which payloads are offloaded.
	OverflowThreshold int
}

// DefaultExemptPaths are the admin endpoints, which must stay reachable for a banned operator.
var DefaultExemptPaths = []string{"/health", "/logs", "/blocklist", "/unblock", "/limits"}

// Pipeline runs BlockCheck, RateCheck and Emit. Handling sits between
// Check and Emit and belongs to the transport.
type Pipeline struct {
	blocks   service.BlockStore
	limiter  service.RateLimiter
	overflow service.OverflowWriter
	sink     service.LogSink
	metrics  *monitoring.Metrics
	logger   logger.Logger

	exact     map[string]struct{}
	prefixes  []string
	threshold int
}

// NewPipeline builds a pipeline. limiter may be nil to disable rate
// limiting; metrics may be nil.
func NewPipeline(
	blocks service.BlockStore,
	limiter service.RateLimiter,
	overflow service.OverflowWriter,
	sink service.LogSink,
	metrics *monitoring.Metrics,
	log logger.Logger,
	opts Options,
) *Pipeline {
	if opts.OverflowThreshold <= 0 {
		opts.OverflowThreshold = constants.OverflowThreshold
	}
	if opts.ExemptPaths == nil {
		opts.ExemptPaths = DefaultExemptPaths
	}
	p := &Pipeline{
		blocks:    blocks,
		limiter:   limiter,
		overflow:  overflow,
		sink:      sink,
		metrics:   metrics,
		logger:    log.WithComponent("admission"),
		exact:     make(map[string]struct{}),
		threshold: opts.OverflowThreshold,
	}
	for _, path := range opts.ExemptPaths {
		if prefix, ok := strings.CutSuffix(path, "/*"); ok {
			p.prefixes = append(p.prefixes, prefix+"/")
			continue
		}
		p.exact[path] = struct{}{}
	}
	return p
}

// Exempt reports whether path bypasses the admission checks.
func (p *Pipeline) Exempt(path string) bool {
	if _, ok := p.exact[path]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Check runs BlockCheck then RateCheck for id. Store errors fail open:
// the request proceeds and the error is logged and counted.
func (p *Pipeline) Check(ctx context.Context, id string) Verdict {
	entry, banned, err := p.blocks.Lookup(ctx, id)
	if err != nil {
		p.logger.Error(ctx, "block check failed, admitting request", err, logger.String("ip", id))
		p.recordError("block_check")
	}
	if banned {
		p.recordDecision("blocked")
		return Verdict{
			Outcome:  models.OutcomeRejectedBanned,
			Decision: models.DecisionHardBan,
			ClientID: id,
			Reason:   entry.Reason,
			blocked:  true,
		}
	}

	if p.limiter == nil {
		p.recordDecision(models.DecisionPass.String())
		return Verdict{Outcome: models.OutcomeCompleted, Decision: models.DecisionPass, ClientID: id}
	}

	decision, err := p.limiter.Admit(ctx, id)
	if err != nil {
		p.logger.Error(ctx, "rate check failed", err,
			logger.String("ip", id),
			logger.String("decision", decision.String()),
		)
		p.recordError("rate_check")
	}
	p.recordDecision(decision.String())

	switch decision {
	case models.DecisionHardBan:
		if p.metrics != nil && err == nil {
			p.metrics.BansIssued.Inc()
		}
		return Verdict{Outcome: models.OutcomeRejectedBanned, Decision: decision, ClientID: id}
	case models.DecisionSoftThrottle:
		return Verdict{Outcome: models.OutcomeRejectedThrottled, Decision: decision, ClientID: id}
	default:
		return Verdict{Outcome: models.OutcomeCompleted, Decision: decision, ClientID: id}
	}
}

// Emit builds the log record for ex and hands it to the sink. Bodies at or
// above the threshold are offloaded first; a failed offload is logged and
// the record is kept without a reference.
func (p *Pipeline) Emit(ctx context.Context, ex Exchange) {
	var ref string
	if len(ex.Body) >= p.threshold {
		path, err := p.overflow.Store(ctx, ex.Body)
		if err != nil {
			p.logger.Error(ctx, "failed to offload request body", err,
				logger.String("ip", ex.ClientID),
				logger.Int("size", len(ex.Body)),
			)
			if p.metrics != nil {
				p.metrics.OverflowFailures.Inc()
			}
		} else {
			ref = path
			if p.metrics != nil {
				p.metrics.OverflowFiles.Inc()
			}
		}
	}

	rec := models.NewRequestLog(ex.ReceivedAt, ex.ClientID, ex.Method, ex.Path, ex.StatusCode, ex.UserAgent, ref)
	if err := p.sink.Submit(ctx, rec); err != nil {
		p.logger.Warn(ctx, "request log not accepted", logger.Error(err), logger.String("path", ex.Path))
	}
}

// RecordExempt counts a request that bypassed the checks.
func (p *Pipeline) RecordExempt() {
	p.recordDecision(string(models.OutcomeExempt))
}

func (p *Pipeline) recordDecision(d string) {
	if p.metrics != nil {
		p.metrics.RecordDecision(d)
	}
}

func (p *Pipeline) recordError(stage string) {
	if p.metrics != nil {
		p.metrics.RecordAdmissionError(stage)
	}
}
