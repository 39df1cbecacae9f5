package cache

import (
	"bytes"
	"container/list"
	"strings"
	"sync"
	"time"
)

// Entry is one cached provider response. SizeBytes is the approximate
// payload size, used for reporting only, never for eviction decisions.
type Entry struct {
	Key            string    `json:"key"`
	Provider       string    `json:"provider"`
	Value          []byte    `json:"value"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	SizeBytes      int       `json:"size_bytes"`
}

// EntryStore is the keyed container of cache entries. It owns every Entry
// exclusively: callers only ever receive value copies. Recency is tracked
// with an intrusive list (front = least recently used) so eviction and
// touch are both O(1).
type EntryStore struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element // values are *Entry
	order   *list.List
	now     func() time.Time
}

// NewEntryStore creates a store holding at most maxSize entries. A maxSize
// of zero degenerates to a store that accepts and immediately discards
// every Put.
func NewEntryStore(maxSize int, now func() time.Time) *EntryStore {
	if now == nil {
		now = time.Now
	}
	return &EntryStore{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     now,
	}
}

// Get looks up key. A live entry is touched (moved to most-recent) and
// returned fresh. An expired entry is returned once with fresh=false and
// removed on the same call: the smart accessor needs the stale value
// together with the expiry decision, and a later Get must report not-found.
func (s *EntryStore) Get(key string) (e Entry, found, fresh bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[key]
	if !ok {
		return Entry{}, false, false
	}
	ent := elem.Value.(*Entry)
	now := s.now()

	if !now.Before(ent.ExpiresAt) {
		s.removeLocked(elem, ent)
		return copyEntry(ent), true, false
	}

	ent.LastAccessedAt = now
	s.order.MoveToBack(elem)
	return copyEntry(ent), true, true
}

// Put inserts or replaces the entry for key. When the store is full and the
// key is new, the least-recently-accessed entry is evicted first. Returns
// the number of entries evicted (0 or 1).
func (s *EntryStore) Put(key string, value []byte, provider string, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSize == 0 {
		// Degenerate no-op cache: the entry is evicted before it lands.
		return 1
	}

	now := s.now()
	ent := &Entry{
		Key:            key,
		Provider:       provider,
		Value:          bytes.Clone(value),
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(ttl),
		SizeBytes:      len(value),
	}

	if elem, ok := s.entries[key]; ok {
		// Swap the whole entry so readers never observe a partial write.
		elem.Value = ent
		s.order.MoveToBack(elem)
		return 0
	}

	evicted := 0
	if s.order.Len() >= s.maxSize {
		front := s.order.Front()
		s.removeLocked(front, front.Value.(*Entry))
		evicted = 1
	}
	s.entries[key] = s.order.PushBack(ent)
	return evicted
}

// Invalidate removes every entry matching both filters: provider ownership
// and key-substring pattern. An empty filter matches everything, so a
// pattern-only call sweeps across all providers. Returns the removal count.
func (s *EntryStore) Invalidate(provider, pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		ent := elem.Value.(*Entry)
		if (provider == "" || ent.Provider == provider) &&
			(pattern == "" || strings.Contains(ent.Key, pattern)) {
			s.removeLocked(elem, ent)
			removed++
		}
		elem = next
	}
	return removed
}

// Cleanup removes every expired entry and returns the removal count.
func (s *EntryStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		ent := elem.Value.(*Entry)
		if !now.Before(ent.ExpiresAt) {
			s.removeLocked(elem, ent)
			removed++
		}
		elem = next
	}
	return removed
}

// Len reports the current entry count.
func (s *EntryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *EntryStore) removeLocked(elem *list.Element, ent *Entry) {
	s.order.Remove(elem)
	delete(s.entries, ent.Key)
}

func (s *EntryStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*list.Element)
	s.order.Init()
}

// entriesLRU returns copies of all entries, least recently used first.
func (s *EntryStore) entriesLRU() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		out = append(out, copyEntry(elem.Value.(*Entry)))
	}
	return out
}

// restore replaces the store contents with the given entries, assumed to be
// in LRU order. Entries already expired at the store's clock are dropped
// rather than imported; when more live entries arrive than fit, the most
// recently used win. Returns the number imported.
func (s *EntryStore) restore(entries []Entry) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*list.Element)
	s.order.Init()
	if s.maxSize == 0 {
		return 0
	}

	now := s.now()
	live := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !now.Before(e.ExpiresAt) {
			continue
		}
		live = append(live, e)
	}
	if len(live) > s.maxSize {
		live = live[len(live)-s.maxSize:]
	}
	for i := range live {
		ent := live[i]
		ent.Value = bytes.Clone(ent.Value)
		s.entries[ent.Key] = s.order.PushBack(&ent)
	}
	return len(live)
}

// providerBreakdown aggregates entry count and approximate size per provider.
func (s *EntryStore) providerBreakdown() map[string]ProviderStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]ProviderStats)
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		ent := elem.Value.(*Entry)
		ps := out[ent.Provider]
		ps.Entries++
		ps.SizeBytes += ent.SizeBytes
		out[ent.Provider] = ps
	}
	return out
}

func copyEntry(e *Entry) Entry {
	out := *e
	out.Value = bytes.Clone(e.Value)
	return out
}
