// Package ratelimit implements the two-tier sliding window admission policy:
// a soft throttle on the 1-minute window and a ban on the 10-minute window.
package ratelimit

import (
	"context"
	"time"

	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/internal/domain/service"
	"github.com/turtacn/statusservice/internal/infrastructure/clock"
	"github.com/turtacn/statusservice/pkg/constants"
	"github.com/turtacn/statusservice/pkg/logger"
)

// SlidingWindowLimiter keeps per-client windows in memory only; a restart
// starts every client cold. Window state is independent of the ban list.
type SlidingWindowLimiter struct {
	windows *WindowStore
	blocks  service.BlockStore
	clock   clock.Clock
	logger  logger.Logger
}

var _ service.RateLimiter = (*SlidingWindowLimiter)(nil)

var admissionSpans = []span{
	{kind: constants.WindowMinute, length: constants.ShortWindow},
	{kind: constants.WindowTenMinutes, length: constants.LongWindow},
}

// NewSlidingWindowLimiter creates a limiter that escalates to blocks.
func NewSlidingWindowLimiter(blocks service.BlockStore, clk clock.Clock, log logger.Logger) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows: NewWindowStore(defaultShardCount),
		blocks:  blocks,
		clock:   clk,
		logger:  log.WithComponent("ratelimit"),
	}
}

// Admit records the request and applies the policy. The hard check runs
// first, so a client over both limits is banned rather than throttled. The
// returned error is a failed ban write; the decision is HardBan regardless.
func (l *SlidingWindowLimiter) Admit(ctx context.Context, id string) (models.Decision, error) {
	sizes := l.windows.Record(id, l.clock.Now, admissionSpans...)
	minute, tenMinutes := sizes[0], sizes[1]

	if tenMinutes > constants.LongWindowLimit {
		l.logger.Warn(ctx, "long window exceeded, banning client",
			logger.String("ip", id),
			logger.Int("ten_minute_count", tenMinutes),
			logger.Int("limit", constants.LongWindowLimit),
		)
		if err := l.blocks.Ban(ctx, id, constants.RateBanReason); err != nil {
			return models.DecisionHardBan, err
		}
		return models.DecisionHardBan, nil
	}

	if minute > constants.ShortWindowLimit {
		l.logger.Debug(ctx, "short window exceeded",
			logger.String("ip", id),
			logger.Int("minute_count", minute),
			logger.Int("limit", constants.ShortWindowLimit),
		)
		return models.DecisionSoftThrottle, nil
	}

	return models.DecisionPass, nil
}

func (l *SlidingWindowLimiter) Stats(id string) models.WindowStats {
	now := l.clock.Now()
	return models.WindowStats{
		Minute:     l.windows.Count(id, constants.WindowMinute, constants.ShortWindow, now),
		TenMinutes: l.windows.Count(id, constants.WindowTenMinutes, constants.LongWindow, now),
	}
}

// StartJanitor removes idle windows every interval until ctx is cancelled.
func (l *SlidingWindowLimiter) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := l.Sweep(); removed > 0 {
					l.logger.Debug(ctx, "idle windows removed", logger.Int("removed", removed), logger.Int("remaining", l.windows.Size()))
				}
			}
		}
	}()
}

// Sweep removes idle windows once and returns how many were removed.
func (l *SlidingWindowLimiter) Sweep() int {
	return l.windows.Cleanup(l.clock.Now())
}

// TrackedWindows returns the number of windows held in memory.
func (l *SlidingWindowLimiter) TrackedWindows() int {
	return l.windows.Size()
}
