// Package blocklist implements the durable ban list. The whole map is kept in
// memory and rewritten to its document on every mutation.
package blocklist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/internal/domain/repository"
	"github.com/turtacn/statusservice/internal/domain/service"
	"github.com/turtacn/statusservice/internal/infrastructure/clock"
	svcerrors "github.com/turtacn/statusservice/pkg/errors"
	"github.com/turtacn/statusservice/pkg/logger"
)

// Store is a BlockStore backed by a single document.
type Store struct {
	mu     sync.Mutex
	doc    repository.DocumentStore
	bans   map[string]models.BanEntry
	ttl    time.Duration
	clock  clock.Clock
	logger logger.Logger
}

var _ service.BlockStore = (*Store)(nil)

// NewStore loads the ban map from doc. A missing or unparsable document
// yields an empty map.
func NewStore(ctx context.Context, doc repository.DocumentStore, ttl time.Duration, clk clock.Clock, log logger.Logger) *Store {
	s := &Store{
		doc:    doc,
		bans:   make(map[string]models.BanEntry),
		ttl:    ttl,
		clock:  clk,
		logger: log.WithComponent("blocklist"),
	}

	data, err := doc.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrDocumentNotFound):
		s.logger.Info(ctx, "ban list not found, starting empty", logger.String("location", doc.Location()))
	case err != nil:
		s.logger.Warn(ctx, "ban list unreadable, starting empty", logger.String("location", doc.Location()), logger.Error(err))
	default:
		var loaded map[string]models.BanEntry
		if err := json.Unmarshal(data, &loaded); err != nil {
			s.logger.Warn(ctx, "ban list malformed, starting empty", logger.String("location", doc.Location()), logger.Error(err))
		} else if loaded != nil {
			s.bans = loaded
		}
	}

	s.logger.Info(ctx, "ban list loaded", logger.Int("entries", len(s.bans)))
	return s
}

func (s *Store) IsBanned(ctx context.Context, id string) (bool, error) {
	_, ok, err := s.Lookup(ctx, id)
	return ok, err
}

// Lookup returns the live entry for id. An expired entry is evicted and the
// eviction persisted; a failed eviction write is returned alongside false.
func (s *Store) Lookup(ctx context.Context, id string) (models.BanEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.bans[id]
	if !ok {
		return models.BanEntry{}, false, nil
	}
	if !entry.IsExpired(s.clock.Now(), s.ttl) {
		return entry, true, nil
	}

	delete(s.bans, id)
	if err := s.persistLocked(ctx); err != nil {
		return models.BanEntry{}, false, err
	}
	s.logger.Info(ctx, "ban expired", logger.String("ip", id), logger.Time("banned_at", entry.BannedAt))
	return models.BanEntry{}, false, nil
}

func (s *Store) Ban(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.bans[id]
	s.bans[id] = models.BanEntry{BannedAt: s.clock.Now().UTC(), Reason: reason}
	if err := s.persistLocked(ctx); err != nil {
		if existed {
			s.bans[id] = prev
		} else {
			delete(s.bans, id)
		}
		return err
	}

	s.logger.Warn(ctx, "client banned", logger.String("ip", id), logger.String("reason", reason), logger.Bool("refreshed", existed))
	return nil
}

func (s *Store) Unban(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.bans[id]
	if !ok {
		return false, nil
	}
	delete(s.bans, id)
	if err := s.persistLocked(ctx); err != nil {
		s.bans[id] = prev
		return false, err
	}

	s.logger.Info(ctx, "client unbanned", logger.String("ip", id))
	return true, nil
}

// ListAll returns a copy of every entry without evicting expired ones.
func (s *Store) ListAll(_ context.Context) map[string]models.BanEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.BanEntry, len(s.bans))
	for id, entry := range s.bans {
		out[id] = entry
	}
	return out
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.MarshalIndent(s.bans, "", "  ")
	if err != nil {
		return svcerrors.ErrPersistence("failed to encode ban list", err)
	}
	if err := s.doc.Save(ctx, data); err != nil {
		s.logger.Error(ctx, "failed to persist ban list", err, logger.String("location", s.doc.Location()))
		return svcerrors.ErrPersistence("failed to persist ban list", err)
	}
	return nil
}
