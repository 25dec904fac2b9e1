package service

import (
	"context"

	"github.com/turtacn/statusservice/internal/domain/models"
)

// Counter hands out strictly increasing, never reused sequence numbers.
type Counter interface {
	// GetNext persists and returns the next value. Concurrent callers never
	// observe the same value.
	GetNext(ctx context.Context) (int64, error)

	// Current returns the last issued value without advancing it.
	Current(ctx context.Context) int64
}

// BlockStore is the durable ban list keyed by client identifier.
type BlockStore interface {
	// IsBanned reports whether id is banned. An expired entry is removed
	// (and the removal persisted) and reported as not banned.
	IsBanned(ctx context.Context, id string) (bool, error)

	// Lookup returns the live entry for id, applying the same expiry rule as IsBanned.
	Lookup(ctx context.Context, id string) (models.BanEntry, bool, error)

	// Ban upserts an entry for id with the current time. Re-banning refreshes the timestamp.
	Ban(ctx context.Context, id, reason string) error

	// Unban removes the entry for id and reports whether it existed.
	Unban(ctx context.Context, id string) (bool, error)

	// ListAll returns a snapshot copy of every entry, expired ones included.
	ListAll(ctx context.Context) map[string]models.BanEntry
}

// OverflowWriter offloads large request payloads to write-once files.
type OverflowWriter interface {
	// Store writes content to a new date-partitioned file and returns its path.
	Store(ctx context.Context, content []byte) (string, error)
}

// RateLimiter applies the two-tier sliding window policy.
type RateLimiter interface {
	// Admit records one request for id and returns the verdict.
	Admit(ctx context.Context, id string) (models.Decision, error)

	// Stats returns the live window sizes for id without recording a request.
	Stats(id string) models.WindowStats
}

// LogSink accepts request log records without blocking and persists them in order.
type LogSink interface {
	// Submit enqueues rec. It never waits on I/O.
	Submit(ctx context.Context, rec *models.RequestLog) error

	// Query returns up to limit records, most recent first.
	Query(ctx context.Context, limit int) ([]models.RequestLog, error)

	// Close stops intake and drains the queue until ctx is done.
	Close(ctx context.Context) error
}
