// Package overflow offloads oversized request bodies to write-once files laid
// out as <root>/<YYYY-MM-DD>/<000001>.
package overflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/turtacn/statusservice/internal/domain/service"
	"github.com/turtacn/statusservice/internal/infrastructure/clock"
	"github.com/turtacn/statusservice/pkg/constants"
	"github.com/turtacn/statusservice/pkg/logger"
)

// Writer names each file from a Counter sequence number, so concurrent
// writers never target the same path.
type Writer struct {
	root    string
	counter service.Counter
	clock   clock.Clock
	logger  logger.Logger
}

var _ service.OverflowWriter = (*Writer)(nil)

func NewWriter(root string, counter service.Counter, clk clock.Clock, log logger.Logger) *Writer {
	return &Writer{
		root:    root,
		counter: counter,
		clock:   clk,
		logger:  log.WithComponent("overflow"),
	}
}

// Store writes content to a fresh file and returns its path. An existing file
// is never overwritten.
func (w *Writer) Store(ctx context.Context, content []byte) (string, error) {
	partition := filepath.Join(w.root, w.clock.Now().UTC().Format(constants.OverflowDateLayout))
	if err := os.MkdirAll(partition, 0o755); err != nil {
		return "", fmt.Errorf("create overflow partition %s: %w", partition, err)
	}

	seq, err := w.counter.GetNext(ctx)
	if err != nil {
		return "", fmt.Errorf("allocate overflow sequence: %w", err)
	}

	path := filepath.Join(partition, FileName(seq))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create overflow file %s: %w", path, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", fmt.Errorf("write overflow file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close overflow file %s: %w", path, err)
	}

	w.logger.Debug(ctx, "payload offloaded", logger.String("path", path), logger.Int("bytes", len(content)))
	return path, nil
}

// FileName formats a sequence number as a zero padded file name.
func FileName(seq int64) string {
	return fmt.Sprintf("%0*d", constants.OverflowSequenceWidth, seq)
}
