package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/mcf/internal/domain/model"
	"github.com/okian/mcf/pkg/metrics"
)

// MemoryStore keeps results in memory, bounded by capacity. Insertion order
// is tracked in a ring so eviction and listing are oldest-first and
// newest-first respectively.
//
// Stored results share their slices with callers; treat them as read-only.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]model.Result
	ring     []string // insertion order, len == capacity
	head     int      // index of the oldest id
	size     int
	capacity int
	closed   bool

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewMemoryStore constructs a store with configuration options and starts
// its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		capacity:              1_000,
		metricsUpdateInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.byID = make(map[string]model.Result, s.capacity)
	s.ring = make([]string, s.capacity)

	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)
	return s
}

// Put stores res, evicting the oldest result when the store is full.
func (s *MemoryStore) Put(_ context.Context, res model.Result) error {
	if res.ID == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, ok := s.byID[res.ID]; ok {
		s.byID[res.ID] = res
		return nil
	}
	if s.size == s.capacity {
		oldest := s.ring[s.head]
		delete(s.byID, oldest)
		s.head = (s.head + 1) % s.capacity
		s.size--
		metrics.RecordStoreEviction()
	}
	s.ring[(s.head+s.size)%s.capacity] = res.ID
	s.size++
	s.byID[res.ID] = res
	return nil
}

// Get returns the result stored under id.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Result{}, ErrClosed
	}
	res, ok := s.byID[id]
	if !ok {
		return model.Result{}, ErrNotFound
	}
	return res, nil
}

// List returns up to limit summaries, newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	n := min(limit, s.size)
	out := make([]Summary, 0, n)
	for i := s.size - 1; i >= s.size-n; i-- {
		res := s.byID[s.ring[(s.head+i)%s.capacity]]
		out = append(out, Summary{
			ID:        res.ID,
			CreatedAt: res.CreatedAt,
			Subjects:  res.Subjects,
			Times:     res.Len(),
			Methods:   res.Methods,
		})
	}
	return out, nil
}

// Count returns the number of stored results.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Close stops the metrics updater and rejects further use.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stopChan)
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// startMetricsUpdater starts a background goroutine that publishes the store size.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateStoredResults(s.Count(ctx))
			}
		}
	}()
}
