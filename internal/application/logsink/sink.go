// Package logsink persists request log records off the request path.
package logsink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/internal/domain/repository"
	"github.com/turtacn/statusservice/internal/domain/service"
	"github.com/turtacn/statusservice/internal/infrastructure/monitoring"
	svcerrors "github.com/turtacn/statusservice/pkg/errors"
	"github.com/turtacn/statusservice/pkg/logger"
)

// Sink queues records in an unbounded FIFO and writes them with a single
// worker, so the store sees records in submission order.
type Sink struct {
	repo    repository.RequestLogRepository
	logger  logger.Logger
	metrics *monitoring.Metrics

	mu     sync.Mutex
	queue  []*models.RequestLog
	closed bool

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}

	workCtx    context.Context
	cancelWork context.CancelFunc
	aborted    atomic.Bool

	written  atomic.Uint64
	failures atomic.Uint64
	lost     atomic.Uint64

	failureReport rate.Sometimes
	closeOnce     sync.Once
}

var _ service.LogSink = (*Sink)(nil)

// New creates the sink and starts its worker. metrics may be nil.
func New(repo repository.RequestLogRepository, metrics *monitoring.Metrics, log logger.Logger) *Sink {
	workCtx, cancel := context.WithCancel(context.Background())
	s := &Sink{
		repo:          repo,
		logger:        log.WithComponent("logsink"),
		metrics:       metrics,
		notify:        make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		workCtx:       workCtx,
		cancelWork:    cancel,
		failureReport: rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
	go s.run()
	return s
}

// Submit enqueues rec and returns immediately.
func (s *Sink) Submit(ctx context.Context, rec *models.RequestLog) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.lost.Add(1)
		if s.metrics != nil {
			s.metrics.LogRecordsLost.Inc()
		}
		s.logger.Warn(ctx, "request log submitted after close",
			logger.String("ip", rec.ClientID),
			logger.String("path", rec.Path),
		)
		return svcerrors.ErrClosed
	}
	s.queue = append(s.queue, rec)
	depth := len(s.queue)
	s.mu.Unlock()

	s.setDepth(depth)
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Query returns up to limit records, most recent first.
func (s *Sink) Query(ctx context.Context, limit int) ([]models.RequestLog, error) {
	return s.repo.Recent(ctx, limit)
}

// Close stops intake and lets the worker drain until ctx is done. Records
// still queued at the deadline are dropped and counted as lost.
func (s *Sink) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		pending := len(s.queue)
		s.mu.Unlock()
		close(s.stop)

		s.logger.Info(ctx, "draining request log queue", logger.Int("pending", pending))

		select {
		case <-s.done:
		case <-ctx.Done():
			s.aborted.Store(true)
			s.cancelWork()
			<-s.done
		}
		s.cancelWork()

		s.mu.Lock()
		remaining := len(s.queue)
		s.queue = nil
		s.mu.Unlock()
		s.setDepth(0)

		if remaining > 0 {
			s.lost.Add(uint64(remaining))
			if s.metrics != nil {
				s.metrics.LogRecordsLost.Add(float64(remaining))
			}
			s.logger.Error(ctx, "request log records lost at shutdown", ctx.Err(), logger.Int("lost", remaining))
			err = fmt.Errorf("log sink closed with %d records unwritten: %w", remaining, ctx.Err())
			return
		}
		s.logger.Info(ctx, "request log queue drained", logger.Int64("written", int64(s.written.Load())))
	})
	return err
}

// Stats returns the number of records written, refused by the store and lost.
func (s *Sink) Stats() (written, failed, lost uint64) {
	return s.written.Load(), s.failures.Load(), s.lost.Load()
}

// Pending returns the current queue length.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Sink) run() {
	defer close(s.done)
	for {
		if s.aborted.Load() {
			return
		}
		rec, ok := s.pop()
		if ok {
			s.write(rec)
			continue
		}
		select {
		case <-s.notify:
		case <-s.stop:
			if s.Pending() == 0 {
				return
			}
		}
	}
}

// pop removes the head of the queue. The head is only dropped after it is
// taken, so an aborted drain leaves unwritten records countable.
func (s *Sink) pop() (*models.RequestLog, bool) {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return nil, false
	}
	rec := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	depth := len(s.queue)
	s.mu.Unlock()
	s.setDepth(depth)
	return rec, true
}

func (s *Sink) write(rec *models.RequestLog) {
	if err := s.repo.Append(s.workCtx, rec); err != nil {
		s.failures.Add(1)
		if s.metrics != nil {
			s.metrics.LogWriteFailures.Inc()
		}
		s.failureReport.Do(func() {
			s.logger.Error(s.workCtx, "failed to persist request log", err,
				logger.String("ip", rec.ClientID),
				logger.String("path", rec.Path),
				logger.Int64("failures_total", int64(s.failures.Load())),
			)
		})
		return
	}
	s.written.Add(1)
}

func (s *Sink) setDepth(n int) {
	if s.metrics != nil {
		s.metrics.LogQueueDepth.Set(float64(n))
	}
}
