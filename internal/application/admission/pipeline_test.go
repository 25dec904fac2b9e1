package admission

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/internal/infrastructure/monitoring"
	"github.com/turtacn/statusservice/pkg/logger"
)

type stubBlocks struct {
	entries map[string]models.BanEntry
	err     error
}

func (s *stubBlocks) IsBanned(ctx context.Context, id string) (bool, error) {
	_, ok, err := s.Lookup(ctx, id)
	return ok, err
}
func (s *stubBlocks) Lookup(_ context.Context, id string) (models.BanEntry, bool, error) {
	if s.err != nil {
		return models.BanEntry{}, false, s.err
	}
	e, ok := s.entries[id]
	return e, ok, nil
}
func (s *stubBlocks) Ban(_ context.Context, id, reason string) error {
	s.entries[id] = models.BanEntry{BannedAt: time.Now(), Reason: reason}
	return nil
}
func (s *stubBlocks) Unban(_ context.Context, id string) (bool, error) {
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok, nil
}
func (s *stubBlocks) ListAll(context.Context) map[string]models.BanEntry { return s.entries }

type stubLimiter struct {
	decision models.Decision
	err      error
	calls    int
}

func (l *stubLimiter) Admit(context.Context, string) (models.Decision, error) {
	l.calls++
	return l.decision, l.err
}
func (l *stubLimiter) Stats(string) models.WindowStats { return models.WindowStats{} }

type stubOverflow struct {
	err   error
	calls int
}

func (o *stubOverflow) Store(context.Context, []byte) (string, error) {
	o.calls++
	if o.err != nil {
		return "", o.err
	}
	return "data/overflow/2026-05-04/000001", nil
}

type stubSink struct {
	mu   sync.Mutex
	recs []*models.RequestLog
}

func (s *stubSink) Submit(_ context.Context, rec *models.RequestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}
func (s *stubSink) Query(context.Context, int) ([]models.RequestLog, error) { return nil, nil }
func (s *stubSink) Close(context.Context) error                             { return nil }

type fixture struct {
	blocks   *stubBlocks
	limiter  *stubLimiter
	overflow *stubOverflow
	sink     *stubSink
	metrics  *monitoring.Metrics
	p        *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		blocks:   &stubBlocks{entries: map[string]models.BanEntry{}},
		limiter:  &stubLimiter{},
		overflow: &stubOverflow{},
		sink:     &stubSink{},
		metrics:  monitoring.NewMetrics(prometheus.NewRegistry()),
	}
	f.p = NewPipeline(f.blocks, f.limiter, f.overflow, f.sink, f.metrics, logger.NewNullLogger(),
		Options{ExemptPaths: append(DefaultExemptPaths, "/metrics", "/debug/pprof/*")})
	return f
}

func TestBannedClientSkipsRateCheck(t *testing.T) {
	f := newFixture()
	f.blocks.entries["10.0.0.5"] = models.BanEntry{BannedAt: time.Now(), Reason: "manual"}

	v := f.p.Check(context.Background(), "10.0.0.5")
	assert.Equal(t, models.OutcomeRejectedBanned, v.Outcome)
	assert.Equal(t, http.StatusTooManyRequests, v.Status())
	assert.Equal(t, map[string]interface{}{"error": "IP address is blocked", "reason": "manual", "ip": "10.0.0.5"}, v.Body())
	assert.Zero(t, f.limiter.calls)
}

func TestRateDecisionsMapToOutcomes(t *testing.T) {
	cases := []struct {
		decision models.Decision
		outcome  models.Outcome
		body     map[string]interface{}
	}{
		{models.DecisionPass, models.OutcomeCompleted, nil},
		{models.DecisionSoftThrottle, models.OutcomeRejectedThrottled, map[string]interface{}{"error": "Rate limit exceeded"}},
		{models.DecisionHardBan, models.OutcomeRejectedBanned, map[string]interface{}{"error": "Rate limit exceeded - IP blocked"}},
	}
	for _, tc := range cases {
		t.Run(tc.decision.String(), func(t *testing.T) {
			f := newFixture()
			f.limiter.decision = tc.decision

			v := f.p.Check(context.Background(), "10.0.0.1")
			assert.Equal(t, tc.outcome, v.Outcome)
			assert.Equal(t, tc.body, v.Body())
			assert.Equal(t, tc.decision == models.DecisionPass, v.Admitted())
		})
	}
}

func TestBlockStoreErrorFailsOpen(t *testing.T) {
	f := newFixture()
	f.blocks.err = errors.New("redis: connection refused")

	v := f.p.Check(context.Background(), "10.0.0.1")
	assert.True(t, v.Admitted())
	assert.Equal(t, 1, f.limiter.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AdmissionErrors.WithLabelValues("block_check")))
}

func TestHardBanWithFailedWriteStillRejects(t *testing.T) {
	f := newFixture()
	f.limiter.decision = models.DecisionHardBan
	f.limiter.err = errors.New("read-only filesystem")

	v := f.p.Check(context.Background(), "10.0.0.1")
	assert.Equal(t, models.OutcomeRejectedBanned, v.Outcome)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AdmissionErrors.WithLabelValues("rate_check")))
	assert.Zero(t, testutil.ToFloat64(f.metrics.BansIssued))
}

func TestExemptPaths(t *testing.T) {
	p := newFixture().p
	for _, path := range []string{"/health", "/logs", "/blocklist", "/unblock", "/metrics", "/debug/pprof/heap"} {
		assert.True(t, p.Exempt(path), path)
	}
	for _, path := range []string{"/", "/api/users", "/status/200", "/healthz", "/debug/pprof"} {
		assert.False(t, p.Exempt(path), path)
	}
}

func TestEmitOffloadsAtThreshold(t *testing.T) {
	f := newFixture()
	ex := Exchange{ReceivedAt: time.Now(), ClientID: "10.0.0.1", Method: "POST", Path: "/api/echo", StatusCode: 200}

	ex.Body = make([]byte, 200*1024-1)
	f.p.Emit(context.Background(), ex)
	ex.Body = make([]byte, 200*1024)
	f.p.Emit(context.Background(), ex)

	require.Len(t, f.sink.recs, 2)
	assert.False(t, f.sink.recs[0].HasOverflow())
	require.True(t, f.sink.recs[1].HasOverflow())
	assert.Equal(t, "data/overflow/2026-05-04/000001", *f.sink.recs[1].OverflowRef)
	assert.Equal(t, 1, f.overflow.calls)
}

func TestEmitKeepsRecordWhenOffloadFails(t *testing.T) {
	f := newFixture()
	f.overflow.err = errors.New("no space left on device")

	f.p.Emit(context.Background(), Exchange{ClientID: "a", Method: "POST", Path: "/api/echo", StatusCode: 200, Body: make([]byte, 300*1024)})

	require.Len(t, f.sink.recs, 1)
	assert.Nil(t, f.sink.recs[0].OverflowRef)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OverflowFailures))
}

func TestNilLimiterPasses(t *testing.T) {
	f := newFixture()
	p := NewPipeline(f.blocks, nil, f.overflow, f.sink, nil, logger.NewNullLogger(), Options{})
	assert.True(t, p.Check(context.Background(), "x").Admitted())
	assert.True(t, p.Exempt("/health"))
}
