// Package dedupe tracks claimed identity keys so that a write can be
// refused when its key was taken before. It backs the uniqueness rules of
// the in-memory store: one vote per voter, technology, event and round,
// and one live event per name.
package dedupe

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// Deduper records claimed keys. Keys are never evicted: forgetting one
// would let a duplicate write through.
type Deduper interface {
	// SeenAndRecord atomically checks if id was claimed and claims it if not.
	// Returns true if id was already claimed, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// SeenAndRecordAll claims every id or none. It returns the first id
	// that was already claimed (or repeated within ids) and false.
	SeenAndRecordAll(ctx context.Context, ids []string) (string, bool)

	// Unrecord releases id so it can be claimed again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper on a map guarded by a mutex.
type inMemoryDeduper struct {
	mu       sync.RWMutex
	seen     map[string]struct{}
	size     atomic.Int64
	fold     bool
	capacity int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{capacity: 1024}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.capacity)
	return d
}

func (d *inMemoryDeduper) key(id string) string {
	if d.fold {
		return strings.ToLower(strings.TrimSpace(id))
	}
	return id
}

// SeenAndRecord atomically checks if id was claimed and claims it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	k := d.key(id)
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		return true
	}
	d.seen[k] = struct{}{}
	d.size.Add(1)
	return false
}

// SeenAndRecordAll claims all ids atomically.
func (d *inMemoryDeduper) SeenAndRecordAll(_ context.Context, ids []string) (string, bool) {
	keys := make([]string, len(ids))
	batch := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		keys[i] = d.key(id)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i, k := range keys {
		if _, exists := d.seen[k]; exists {
			return ids[i], false
		}
		if _, repeated := batch[k]; repeated {
			return ids[i], false
		}
		batch[k] = struct{}{}
	}
	for k := range batch {
		d.seen[k] = struct{}{}
	}
	d.size.Add(int64(len(batch)))
	return "", true
}

// Unrecord releases id.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	k := d.key(id)
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		delete(d.seen, k)
		d.size.Add(-1)
	}
}

// Size returns the current number of claimed keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
