package ratelimit

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/turtacn/statusservice/pkg/constants"
)

const defaultShardCount = 64

// windowKey identifies one sliding window of one client.
type windowKey struct {
	kind constants.WindowKind
	id   string
}

// window holds arrival timestamps in arrival order. expiresAt only drives
// memory reclamation; membership is always recomputed from the timestamps.
type window struct {
	stamps    []time.Time
	expiresAt time.Time
}

// prune drops every stamp at or before cutoff.
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	// Copy instead of reslicing so the backing array does not grow forever.
	w.stamps = append(w.stamps[:0:0], w.stamps[i:]...)
}

func (w *window) live(cutoff time.Time) int {
	n := 0
	for j := len(w.stamps) - 1; j >= 0 && w.stamps[j].After(cutoff); j-- {
		n++
	}
	return n
}

type windowShard struct {
	mu      sync.Mutex
	windows map[windowKey]*window
}

// WindowStore is a sharded concurrent map of sliding windows. Both windows
// of a client live on the same shard, so a single shard lock makes the
// prune-and-append of one admission atomic for that client.
type WindowStore struct {
	shards []*windowShard
}

// NewWindowStore creates a store with shardCount shards (64 when <= 0).
func NewWindowStore(shardCount int) *WindowStore {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	s := &WindowStore{shards: make([]*windowShard, shardCount)}
	for i := range s.shards {
		s.shards[i] = &windowShard{windows: make(map[windowKey]*window)}
	}
	return s
}

func (s *WindowStore) shard(id string) *windowShard {
	return s.shards[xxhash.Sum64String(id)%uint64(len(s.shards))]
}

// span describes one window to update in Record.
type span struct {
	kind   constants.WindowKind
	length time.Duration
}

// Record appends now() to every listed window of id, prunes them and returns
// their sizes in the same order. now is read under the shard lock so stamps
// stay ordered per client.
func (s *WindowStore) Record(id string, now func() time.Time, spans ...span) []int {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	ts := now()
	sizes := make([]int, len(spans))
	for i, sp := range spans {
		key := windowKey{kind: sp.kind, id: id}
		w, ok := sh.windows[key]
		if !ok {
			w = &window{}
			sh.windows[key] = w
		}
		w.stamps = append(w.stamps, ts)
		w.prune(ts.Add(-sp.length))
		w.expiresAt = ts.Add(sp.length)
		sizes[i] = len(w.stamps)
	}
	return sizes
}

// Count returns the live size of a window without recording anything.
func (s *WindowStore) Count(id string, kind constants.WindowKind, length time.Duration, now time.Time) int {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	w, ok := sh.windows[windowKey{kind: kind, id: id}]
	if !ok {
		return 0
	}
	return w.live(now.Add(-length))
}

// Cleanup removes windows whose last stamp has aged out and returns how many
// were removed.
func (s *WindowStore) Cleanup(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, w := range sh.windows {
			if !now.Before(w.expiresAt) {
				delete(sh.windows, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Size returns the number of windows currently held.
func (s *WindowStore) Size() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.windows)
		sh.mu.Unlock()
	}
	return n
}
