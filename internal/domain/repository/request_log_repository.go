package repository

import (
	"context"

	"github.com/turtacn/statusservice/internal/domain/models"
)

// RequestLogRepository is the durable, append-only request log store.
type RequestLogRepository interface {
	// Append stores rec and assigns its ID.
	Append(ctx context.Context, rec *models.RequestLog) error

	// Recent returns up to limit records ordered newest first.
	Recent(ctx context.Context, limit int) ([]models.RequestLog, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
