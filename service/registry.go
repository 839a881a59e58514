package service

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"

	"storefront-cart/catalog"
	"storefront-cart/store"
)

const (
	// DefaultMaxSessions caps the carts a Registry keeps in memory.
	DefaultMaxSessions = 10000

	loadTimeout = 10 * time.Second
)

// Registry hands out one CartStore per session. Stores are loaded on first
// use; concurrent first requests for a session share a single load.
//
// At most maxSessions stores stay resident. The least recently used one is
// retired when the cap is hit, and its session is not loaded again until
// the retired store has finished its last write.
type Registry struct {
	store     store.Store
	catalog   catalog.Catalog
	namespace string
	opts      []Option

	mu       sync.Mutex
	carts    *simplelru.LRU[string, *CartStore]
	retiring map[string]chan struct{}

	loads singleflight.Group
}

// NewRegistry returns a Registry keeping at most maxSessions carts in
// memory. A non-positive maxSessions uses DefaultMaxSessions.
func NewRegistry(st store.Store, cat catalog.Catalog, namespace string, maxSessions int, opts ...Option) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	r := &Registry{
		store:     st,
		catalog:   cat,
		namespace: namespace,
		opts:      opts,
		retiring:  make(map[string]chan struct{}),
	}
	// only fails for a non-positive size
	r.carts, _ = simplelru.NewLRU[string, *CartStore](maxSessions, r.evicted)
	return r
}

// Get returns the cart for session, loading it from storage if needed.
func (r *Registry) Get(ctx context.Context, session string) (*CartStore, error) {
	if cs, ok := r.lookup(session); ok {
		return cs, nil
	}

	v, err, _ := r.loads.Do(session, func() (interface{}, error) {
		if cs, ok := r.lookup(session); ok {
			return cs, nil
		}

		// the load is shared, so one caller going away must not fail the rest
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		if err := r.awaitRetired(loadCtx, session); err != nil {
			return nil, err
		}

		opts := make([]Option, 0, len(r.opts)+1)
		opts = append(opts, r.opts...)
		opts = append(opts, WithKey(Key(r.namespace, session)))

		cs, err := NewCartStore(loadCtx, r.store, r.catalog, opts...)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.carts.Add(session, cs)
		r.mu.Unlock()
		return cs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CartStore), nil
}

// Len reports how many carts are resident.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.carts.Len()
}

func (r *Registry) lookup(session string) (*CartStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.carts.Get(session)
}

// awaitRetired blocks until a store evicted for session has stopped writing.
func (r *Registry) awaitRetired(ctx context.Context, session string) error {
	r.mu.Lock()
	done, ok := r.retiring[session]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// evicted runs under r.mu from carts.Add. Retiring waits on the store's
// write lock, which may be held across remote calls, so it happens off the
// registry lock.
func (r *Registry) evicted(session string, cs *CartStore) {
	done := make(chan struct{})
	r.retiring[session] = done
	go func() {
		cs.retire()
		r.mu.Lock()
		delete(r.retiring, session)
		r.mu.Unlock()
		close(done)
	}()
}
