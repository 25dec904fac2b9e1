// Package counter implements the durable overflow sequence counter.
package counter

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/turtacn/statusservice/internal/domain/repository"
	"github.com/turtacn/statusservice/internal/domain/service"
	svcerrors "github.com/turtacn/statusservice/pkg/errors"
	"github.com/turtacn/statusservice/pkg/logger"
)

// Counter persists a single integer and hands out value+1 on every call.
// The store is owned exclusively by the Counter, so the in-memory value is
// the persisted value except after a failed write.
type Counter struct {
	mu     sync.Mutex
	store  repository.DocumentStore
	value  int64
	logger logger.Logger
}

var _ service.Counter = (*Counter)(nil)

// NewCounter loads the persisted value. A missing or unparsable document
// starts the counter at zero.
func NewCounter(ctx context.Context, store repository.DocumentStore, log logger.Logger) *Counter {
	c := &Counter{
		store:  store,
		logger: log.WithComponent("counter"),
	}

	data, err := store.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrDocumentNotFound):
		c.logger.Info(ctx, "counter document not found, starting at zero", logger.String("location", store.Location()))
	case err != nil:
		c.logger.Warn(ctx, "counter document unreadable, starting at zero", logger.String("location", store.Location()), logger.Error(err))
	default:
		v, perr := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if perr != nil || v < 0 {
			c.logger.Warn(ctx, "counter document malformed, starting at zero", logger.String("location", store.Location()), logger.String("content", string(data)))
		} else {
			c.value = v
		}
	}
	return c
}

// GetNext advances and persists the counter. When the write fails the value
// is still consumed so it is never handed out twice.
func (c *Counter) GetNext(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value++
	next := c.value
	if err := c.store.Save(ctx, []byte(strconv.FormatInt(next, 10))); err != nil {
		c.logger.Error(ctx, "failed to persist counter", err, logger.Int64("value", next))
		return 0, svcerrors.ErrPersistence("failed to persist counter", err)
	}
	return next, nil
}

func (c *Counter) Current(_ context.Context) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}
