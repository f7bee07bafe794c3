package symbols

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Index lazily loads the persisted symbol index once and serves it from memory.
// Concurrent first callers share a single load. Invalidate forces a reload on the
// next Get.
type Index struct {
	store Store

	mu       sync.Mutex
	snapshot atomic.Pointer[Mapping]
}

// NewIndex creates an Index backed by store
func NewIndex(store Store) *Index {
	return &Index{store: store}
}

// Get returns the loaded mapping, loading it on first use. A missing index yields an
// empty mapping; a corrupt one yields ErrCorruptIndex and is retried on the next call.
func (idx *Index) Get(ctx context.Context) (Mapping, error) {
	if m := idx.snapshot.Load(); m != nil {
		return *m, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if m := idx.snapshot.Load(); m != nil {
		return *m, nil
	}

	m, err := idx.store.Load(ctx)
	switch {
	case errors.Is(err, ErrIndexNotFound):
		log.Warn().Err(err).Msg("Symbol index not found, rebuild required")
		m = Mapping{}
	case err != nil:
		return nil, err
	default:
		log.Info().Int("symbols", len(m)).Msg("Symbol index loaded")
	}

	idx.snapshot.Store(&m)
	return m, nil
}

// Invalidate drops the loaded mapping. It waits for an in-flight load so that a
// load which read the old content cannot land after the invalidation.
func (idx *Index) Invalidate() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.snapshot.Store(nil)
}
