package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/pkg/logger"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	calls  int
	err    error
	delay  time.Duration
	gate   chan struct{}
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.gate != nil {
		<-w.gate
	}
	time.Sleep(w.delay)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) published() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

func newMirror(repo *memRepo, w *fakeWriter, opts MirrorOptions) *KafkaMirror {
	return NewKafkaMirror(repo, w, logger.NewNullLogger(), opts)
}

func logRec(ip string) *models.RequestLog {
	return models.NewRequestLog(time.Now(), ip, "GET", "/status/200", 200, "curl", "")
}

type memRepo struct {
	recs   []models.RequestLog
	err    error
	closed bool
}

func (r *memRepo) Append(_ context.Context, rec *models.RequestLog) error {
	if r.err != nil {
		return r.err
	}
	rec.ID = uint64(len(r.recs) + 1)
	r.recs = append(r.recs, *rec)
	return nil
}
func (r *memRepo) Recent(context.Context, int) ([]models.RequestLog, error) { return r.recs, nil }
func (r *memRepo) Ping(context.Context) error                               { return nil }
func (r *memRepo) Close() error                                             { r.closed = true; return nil }

func TestMirrorPublishesAfterAppend(t *testing.T) {
	repo, w := &memRepo{}, &fakeWriter{}
	m := newMirror(repo, w, MirrorOptions{})

	rec := models.NewRequestLog(time.Now(), "10.0.0.5", "GET", "/health", 200, "curl", "")
	require.NoError(t, m.Append(context.Background(), rec))
	require.NoError(t, m.Close())

	msgs := w.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "10.0.0.5", string(msgs[0].Key))

	var decoded models.RequestLog
	require.NoError(t, json.Unmarshal(msgs[0].Value, &decoded))
	assert.Equal(t, uint64(1), decoded.ID)
	assert.Equal(t, "/health", decoded.Path)
}

func TestMirrorAppendDoesNotWaitForBroker(t *testing.T) {
	repo, w := &memRepo{}, &fakeWriter{delay: 300 * time.Millisecond}
	m := newMirror(repo, w, MirrorOptions{})

	start := time.Now()
	for i := 0; i < 20; i++ {
		require.NoError(t, m.Append(context.Background(), logRec("10.0.0.5")))
	}
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.Len(t, repo.recs, 20)

	require.NoError(t, m.Close())
	assert.Len(t, w.published(), 20)
	published, dropped, failed := m.Stats()
	assert.Equal(t, uint64(20), published)
	assert.Zero(t, dropped)
	assert.Zero(t, failed)
	// the publisher batches whatever queued up while the broker was slow
	assert.Less(t, w.calls, 20)
}

func TestMirrorDropsWhenQueueFull(t *testing.T) {
	repo, w := &memRepo{}, &fakeWriter{gate: make(chan struct{})}
	m := newMirror(repo, w, MirrorOptions{QueueSize: 2, BatchSize: 1})

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Append(context.Background(), logRec("10.0.0.6")))
	}
	assert.Len(t, repo.recs, 10)
	_, dropped, _ := m.Stats()
	assert.GreaterOrEqual(t, dropped, uint64(7))

	close(w.gate)
	require.NoError(t, m.Close())
	published, dropped, _ := m.Stats()
	assert.Equal(t, uint64(10), published+dropped)
}

func TestMirrorIgnoresPublishFailure(t *testing.T) {
	repo := &memRepo{}
	m := newMirror(repo, &fakeWriter{err: errors.New("broker down")}, MirrorOptions{})

	require.NoError(t, m.Append(context.Background(), logRec("a")))
	assert.Len(t, repo.recs, 1)
	require.NoError(t, m.Close())
	_, _, failed := m.Stats()
	assert.Equal(t, uint64(1), failed)
}

func TestMirrorSkipsPublishWhenStoreFails(t *testing.T) {
	w := &fakeWriter{}
	m := newMirror(&memRepo{err: errors.New("disk full")}, w, MirrorOptions{})

	require.Error(t, m.Append(context.Background(), logRec("a")))
	require.NoError(t, m.Close())
	assert.Empty(t, w.published())
}

func TestMirrorCloseClosesBoth(t *testing.T) {
	repo, w := &memRepo{}, &fakeWriter{}
	m := newMirror(repo, w, MirrorOptions{})
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.True(t, repo.closed)
	assert.True(t, w.closed)

	require.NoError(t, m.Append(context.Background(), logRec("a")))
	_, dropped, _ := m.Stats()
	assert.Equal(t, uint64(1), dropped)
}
