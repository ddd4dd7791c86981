package history

import (
	"sort"
	"sync"
)

// MaxSamples caps each item's buffer; the oldest sample is evicted first.
const MaxSamples = 120

// Sample is one derived observation for an item, recorded once per refresh
// cycle when the item passed the live opportunity filters.
type Sample struct {
	Timestamp int64   `json:"timestamp"`
	Buy       int64   `json:"buy"`
	Sell      int64   `json:"sell"`
	MarginPct float64 `json:"margin_pct"`
	Volume    int64   `json:"volume"`
}

// Persistence loads and saves the full store contents. File-backed in
// production; nil disables persistence (memory only).
type Persistence interface {
	Load() (map[int][]Sample, error)
	Save(map[int][]Sample) error
}

// Store holds the per-item ring buffers. The refresh cycle is the single
// writer; readers always get copies.
type Store struct {
	mu      sync.RWMutex
	samples map[int][]Sample
	port    Persistence
}

// NewStore creates an empty store backed by the given persistence port.
func NewStore(port Persistence) *Store {
	return &Store{
		samples: make(map[int][]Sample),
		port:    port,
	}
}

// Load replaces the store contents from the persistence port. Oversized
// buffers from older files are trimmed to MaxSamples.
func (s *Store) Load() error {
	if s.port == nil {
		return nil
	}
	loaded, err := s.port.Load()
	if err != nil {
		return err
	}
	if loaded == nil {
		loaded = make(map[int][]Sample)
	}
	for id, buf := range loaded {
		if len(buf) > MaxSamples {
			loaded[id] = buf[len(buf)-MaxSamples:]
		}
	}
	s.mu.Lock()
	s.samples = loaded
	s.mu.Unlock()
	return nil
}

// Append pushes a sample onto an item's buffer, evicting the oldest entry
// beyond MaxSamples. It does not persist; callers flush once per cycle.
func (s *Store) Append(itemID int, sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := append(s.samples[itemID], sample)
	if len(buf) > MaxSamples {
		buf = buf[len(buf)-MaxSamples:]
	}
	s.samples[itemID] = buf
}

// Flush writes the full store through the persistence port.
func (s *Store) Flush() error {
	if s.port == nil {
		return nil
	}
	s.mu.RLock()
	snapshot := make(map[int][]Sample, len(s.samples))
	for id, buf := range s.samples {
		cp := make([]Sample, len(buf))
		copy(cp, buf)
		snapshot[id] = cp
	}
	s.mu.RUnlock()
	return s.port.Save(snapshot)
}

// Samples returns a copy of an item's full buffer, oldest first.
func (s *Store) Samples(itemID int) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, ok := s.samples[itemID]
	if !ok {
		return nil
	}
	cp := make([]Sample, len(buf))
	copy(cp, buf)
	return cp
}

// Len returns the number of stored samples for an item.
func (s *Store) Len(itemID int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples[itemID])
}

// ItemIDs returns the ids of all items with history, ascending.
func (s *Store) ItemIDs() []int {
	s.mu.RLock()
	ids := make([]int, 0, len(s.samples))
	for id := range s.samples {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

// ItemCount returns how many items have at least one sample.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Recent returns an item's samples newer than windowSeconds, oldest first.
// When fewer than minSamples fall inside the window, it falls back to the
// last fallbackCount samples of the full buffer, so sparse low-volume items
// still produce a minimum-size window. Callers treat both cases alike.
func (s *Store) Recent(itemID int, windowSeconds int64, minSamples, fallbackCount int, now int64) []Sample {
	s.mu.RLock()
	buf := s.samples[itemID]
	var recent []Sample
	for _, sm := range buf {
		if now-sm.Timestamp < windowSeconds {
			recent = append(recent, sm)
		}
	}
	if len(recent) < minSamples {
		start := len(buf) - fallbackCount
		if start < 0 {
			start = 0
		}
		recent = append(recent[:0:0], buf[start:]...)
	}
	s.mu.RUnlock()
	return recent
}
