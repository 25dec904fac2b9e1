package logsink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/internal/infrastructure/monitoring"
	svcerrors "github.com/turtacn/statusservice/pkg/errors"
	"github.com/turtacn/statusservice/pkg/logger"
)

type memRepo struct {
	mu     sync.Mutex
	recs   []models.RequestLog
	failOn map[string]bool
	gate   chan struct{}
}

func (r *memRepo) Append(ctx context.Context, rec *models.RequestLog) error {
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn[rec.Path] {
		return errors.New("constraint violation")
	}
	rec.ID = uint64(len(r.recs) + 1)
	r.recs = append(r.recs, *rec)
	return nil
}

func (r *memRepo) Recent(_ context.Context, limit int) ([]models.RequestLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RequestLog, 0, limit)
	for i := len(r.recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.recs[i])
	}
	return out, nil
}

func (r *memRepo) Ping(context.Context) error { return nil }
func (r *memRepo) Close() error               { return nil }

func (r *memRepo) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.recs))
	for i, rec := range r.recs {
		out[i] = rec.Path
	}
	return out
}

func rec(path string) *models.RequestLog {
	return models.NewRequestLog(time.Now(), "10.0.0.1", "GET", path, 200, "test", "")
}

func TestSubmissionOrderIsPreserved(t *testing.T) {
	repo := &memRepo{}
	s := New(repo, nil, logger.NewNullLogger())

	for _, p := range []string{"/A", "/B", "/C"} {
		require.NoError(t, s.Submit(context.Background(), rec(p)))
	}
	require.NoError(t, s.Close(context.Background()))

	assert.Equal(t, []string{"/A", "/B", "/C"}, repo.paths())

	got, err := s.Query(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/C", got[0].Path)
	assert.Equal(t, "/B", got[1].Path)
}

func TestFailedAppendDoesNotStopDrain(t *testing.T) {
	repo := &memRepo{failOn: map[string]bool{"/bad": true}}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	s := New(repo, metrics, logger.NewNullLogger())

	for _, p := range []string{"/a", "/bad", "/c"} {
		require.NoError(t, s.Submit(context.Background(), rec(p)))
	}
	require.NoError(t, s.Close(context.Background()))

	assert.Equal(t, []string{"/a", "/c"}, repo.paths())
	written, failed, lost := s.Stats()
	assert.Equal(t, uint64(2), written)
	assert.Equal(t, uint64(1), failed)
	assert.Zero(t, lost)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LogWriteFailures))
}

func TestSubmitDoesNotWaitOnStore(t *testing.T) {
	repo := &memRepo{gate: make(chan struct{})}
	s := New(repo, nil, logger.NewNullLogger())

	start := time.Now()
	for i := 0; i < 1000; i++ {
		require.NoError(t, s.Submit(context.Background(), rec("/slow")))
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.GreaterOrEqual(t, s.Pending(), 999)

	close(repo.gate)
	require.NoError(t, s.Close(context.Background()))
	assert.Len(t, repo.paths(), 1000)
}

func TestCloseGraceExpiryCountsLostRecords(t *testing.T) {
	repo := &memRepo{gate: make(chan struct{})}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	s := New(repo, metrics, logger.NewNullLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Submit(context.Background(), rec("/stuck")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Close(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, failed, lost := s.Stats()
	// the record in flight is cancelled and the rest are dropped
	assert.Equal(t, uint64(5), failed+lost)
	assert.Equal(t, uint64(4), lost)
	assert.Empty(t, repo.paths())
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.LogRecordsLost))
}

func TestSubmitAfterCloseIsRejected(t *testing.T) {
	s := New(&memRepo{}, nil, logger.NewNullLogger())
	require.NoError(t, s.Close(context.Background()))

	err := s.Submit(context.Background(), rec("/late"))
	assert.ErrorIs(t, err, svcerrors.ErrClosed)
	_, _, lost := s.Stats()
	assert.Equal(t, uint64(1), lost)

	assert.NoError(t, s.Close(context.Background()))
}

func TestConcurrentSubmitters(t *testing.T) {
	repo := &memRepo{}
	s := New(repo, nil, logger.NewNullLogger())

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = s.Submit(context.Background(), rec("/c"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, s.Close(context.Background()))
	assert.Len(t, repo.paths(), 500)
}
