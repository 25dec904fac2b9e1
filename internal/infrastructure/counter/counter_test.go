package counter

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/statusservice/internal/infrastructure/persistence/document"
	svcerrors "github.com/turtacn/statusservice/pkg/errors"
	"github.com/turtacn/statusservice/pkg/logger"
)

type flakyStore struct {
	mu      sync.Mutex
	data    []byte
	failing bool
}

func (s *flakyStore) Load(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, nil
}

func (s *flakyStore) Save(_ context.Context, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("disk full")
	}
	s.data = append([]byte(nil), content...)
	return nil
}

func (s *flakyStore) Location() string { return "memory" }

func TestCounterConcurrentUniqueness(t *testing.T) {
	ctx := context.Background()
	store, err := document.NewFileStore(t.TempDir(), "counter")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, []byte("41")))

	c := NewCounter(ctx, store, logger.NewNullLogger())
	start := c.Current(ctx)
	require.Equal(t, int64(41), start)

	const n = 200
	results := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetNext(ctx)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, v := range results {
		assert.Equal(t, start+int64(i)+1, v)
	}

	reloaded := NewCounter(ctx, store, logger.NewNullLogger())
	assert.Equal(t, start+n, reloaded.Current(ctx))
}

func TestCounterMalformedDocumentStartsAtZero(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{data: []byte("not-a-number")}

	c := NewCounter(ctx, store, logger.NewNullLogger())
	v, err := c.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestCounterPersistFailureNeverReusesValue(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{data: []byte("5")}
	c := NewCounter(ctx, store, logger.NewNullLogger())

	store.failing = true
	_, err := c.GetNext(ctx)
	require.Error(t, err)
	assert.True(t, svcerrors.IsPersistenceError(err))

	store.failing = false
	v, err := c.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}
