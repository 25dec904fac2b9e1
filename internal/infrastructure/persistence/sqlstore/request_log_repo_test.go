package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/statusservice/internal/config"
	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/pkg/logger"
)

func newSQLiteRepo(t *testing.T) *RequestLogRepo {
	t.Helper()
	cfg := &config.LogStoreConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "nested", "logs.db"),
	}
	conn, err := NewDBConnection(context.Background(), cfg, logger.NewNullLogger())
	require.NoError(t, err)
	repo := NewRequestLogRepository(conn)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	for i, path := range []string{"/a", "/b", "/c"} {
		rec := models.NewRequestLog(ts.Add(time.Duration(i)*time.Second), "10.0.0.1", "GET", path, 200, "curl/8", "")
		require.NoError(t, repo.Append(ctx, rec))
		assert.NotZero(t, rec.ID)
	}

	got, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/c", got[0].Path)
	assert.Equal(t, "/b", got[1].Path)
	assert.Nil(t, got[0].OverflowRef)
}

func TestOverflowRefRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	rec := models.NewRequestLog(time.Now(), "10.0.0.2", "POST", "/api/echo", 200, "", "data/overflow/2026-05-04/000001")
	require.NoError(t, repo.Append(ctx, rec))

	got, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].HasOverflow())
	assert.Equal(t, "data/overflow/2026-05-04/000001", *got[0].OverflowRef)
	assert.Equal(t, "10.0.0.2", got[0].ClientID)
}

func TestRecentOnEmptyStore(t *testing.T) {
	repo := newSQLiteRepo(t)
	got, err := repo.Recent(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewDBConnection(context.Background(), &config.LogStoreConfig{Driver: "mysql", DSN: "x"}, logger.NewNullLogger())
	require.Error(t, err)
}
