// Package audit mirrors persisted request logs to Kafka for downstream consumers.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"github.com/turtacn/statusservice/internal/config"
	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/internal/domain/repository"
	"github.com/turtacn/statusservice/pkg/logger"
)

const (
	defaultQueueSize = 10000
	defaultBatchSize = 100
)

// MessageWriter is the subset of *kafka.Writer used by the mirror.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a writer from config.
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}
}

// MirrorOptions sizes the publish queue. Zero values take defaults.
type MirrorOptions struct {
	// QueueSize bounds the messages waiting for the broker. Appends beyond it drop the message.
	QueueSize int
	// BatchSize caps the messages handed to one WriteMessages call.
	BatchSize int
}

// KafkaMirror decorates a RequestLogRepository. The wrapped store stays the
// source of truth: publishing happens on a background goroutine, and a
// failed or dropped publish never fails or delays Append.
type KafkaMirror struct {
	repository.RequestLogRepository
	writer    MessageWriter
	logger    logger.Logger
	batchSize int

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}

	published  atomic.Uint64
	dropped    atomic.Uint64
	failed     atomic.Uint64
	dropReport rate.Sometimes
	closeOnce  sync.Once
	closeErr   error
}

var _ repository.RequestLogRepository = (*KafkaMirror)(nil)

func NewKafkaMirror(inner repository.RequestLogRepository, writer MessageWriter, log logger.Logger, opts MirrorOptions) *KafkaMirror {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	m := &KafkaMirror{
		RequestLogRepository: inner,
		writer:               writer,
		logger:               log.WithComponent("KafkaMirror"),
		batchSize:            opts.BatchSize,
		queue:                make(chan kafka.Message, opts.QueueSize),
		done:                 make(chan struct{}),
		dropReport:           rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
	go m.run()
	return m
}

// Append stores rec and then queues it for publishing keyed by client identifier.
func (m *KafkaMirror) Append(ctx context.Context, rec *models.RequestLog) error {
	if err := m.RequestLogRepository.Append(ctx, rec); err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		m.logger.Error(ctx, "failed to marshal request log", err)
		return nil
	}
	msg := kafka.Message{Key: []byte(rec.ClientID), Value: payload}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.drop(ctx, rec, "mirror closed")
		return nil
	}
	select {
	case m.queue <- msg:
	default:
		m.drop(ctx, rec, "publish queue full")
	}
	return nil
}

// Stats returns the number of messages published, dropped before publishing
// and refused by the broker.
func (m *KafkaMirror) Stats() (published, dropped, failed uint64) {
	return m.published.Load(), m.dropped.Load(), m.failed.Load()
}

// Close flushes queued messages, then closes the writer and the wrapped store.
func (m *KafkaMirror) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.queue)
		m.mu.Unlock()
		<-m.done

		published, dropped, failed := m.Stats()
		m.logger.Info(context.Background(), "Kafka mirror stopped",
			logger.Int64("published", int64(published)),
			logger.Int64("dropped", int64(dropped)),
			logger.Int64("failed", int64(failed)),
		)
		m.closeErr = errors.Join(m.writer.Close(), m.RequestLogRepository.Close())
	})
	return m.closeErr
}

func (m *KafkaMirror) run() {
	defer close(m.done)
	batch := make([]kafka.Message, 0, m.batchSize)
	for msg := range m.queue {
		batch = append(batch[:0], msg)
	fill:
		for len(batch) < m.batchSize {
			select {
			case next, ok := <-m.queue:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		m.publish(batch)
	}
}

func (m *KafkaMirror) publish(batch []kafka.Message) {
	if err := m.writer.WriteMessages(context.Background(), batch...); err != nil {
		m.failed.Add(uint64(len(batch)))
		m.logger.Warn(context.Background(), "failed to mirror request logs to Kafka",
			logger.Error(err),
			logger.Int("batch", len(batch)),
		)
		return
	}
	m.published.Add(uint64(len(batch)))
}

func (m *KafkaMirror) drop(ctx context.Context, rec *models.RequestLog, reason string) {
	m.dropped.Add(1)
	m.dropReport.Do(func() {
		m.logger.Warn(ctx, "request log not mirrored to Kafka",
			logger.String("reason", reason),
			logger.Any("log_id", rec.ID),
			logger.Int64("dropped_total", int64(m.dropped.Load())),
		)
	})
}
