package sqlstore

import (
	"context"
	"fmt"

	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/internal/domain/repository"
)

// RequestLogRepo appends request logs and reads them back newest first.
type RequestLogRepo struct {
	conn *DBConnection
}

var _ repository.RequestLogRepository = (*RequestLogRepo)(nil)

func NewRequestLogRepository(conn *DBConnection) *RequestLogRepo {
	return &RequestLogRepo{conn: conn}
}

func (r *RequestLogRepo) Append(ctx context.Context, rec *models.RequestLog) error {
	if err := r.conn.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("append request log: %w", err)
	}
	return nil
}

func (r *RequestLogRepo) Recent(ctx context.Context, limit int) ([]models.RequestLog, error) {
	var out []models.RequestLog
	err := r.conn.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query request logs: %w", err)
	}
	return out, nil
}

func (r *RequestLogRepo) Ping(ctx context.Context) error {
	return r.conn.Ping(ctx)
}

func (r *RequestLogRepo) Close() error {
	return r.conn.Close()
}
