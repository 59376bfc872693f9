package cart

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrCartNotFound is returned when a cart ID is unknown or has expired.
var ErrCartNotFound = errors.New("cart not found")

// StoreConfig controls idle cart eviction.
type StoreConfig struct {
	// IdleTTL is how long a cart may go unaccessed before it is evicted.
	// Zero disables eviction.
	IdleTTL time.Duration
	// SweepInterval is the eviction period used by StartSweeper.
	SweepInterval time.Duration
}

// Store is the process-local registry of carts keyed by session ID. Carts are
// never persisted.
type Store struct {
	cfg StoreConfig
	now func() time.Time

	mu    sync.RWMutex
	carts map[string]*Cart
}

// NewStore returns an empty Store.
func NewStore(cfg StoreConfig) *Store {
	return &Store{
		cfg:   cfg,
		now:   time.Now,
		carts: make(map[string]*Cart),
	}
}

// New creates and registers an empty cart with a fresh ID.
func (s *Store) New() *Cart {
	c := newCart(uuid.New().String(), s.now)

	s.mu.Lock()
	s.carts[c.ID()] = c
	s.mu.Unlock()

	return c
}

// Get returns the cart registered under id. Every lookup counts as activity,
// so a session that only views its cart is not evicted.
func (s *Store) Get(id string) (*Cart, error) {
	s.mu.RLock()
	c, ok := s.carts[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrCartNotFound
	}
	c.touch(s.now())
	return c, nil
}

// Delete unregisters the cart. Unknown IDs are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.carts, id)
	s.mu.Unlock()
}

// Len returns the number of registered carts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.carts)
}

// Sweep evicts carts idle for longer than IdleTTL and returns how many were
// removed. Carts with an active checkout are kept.
func (s *Store) Sweep(now time.Time) int {
	if s.cfg.IdleTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.carts {
		c.mu.Lock()
		idle := now.Sub(c.touched) >= s.cfg.IdleTTL && !c.checkingOut
		c.mu.Unlock()

		if idle {
			delete(s.carts, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every SweepInterval until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 || s.cfg.IdleTTL <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Sweep(now)
			}
		}
	}()
}
