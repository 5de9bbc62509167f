package browser

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// slot owns one live engine page. Its mutex serializes operations against
// the page; closed is set under that mutex once the page is released.
type slot struct {
	id        PageID
	page      EnginePage
	createdAt time.Time
	lastUsed  atomic.Int64

	mu     sync.Mutex
	closed bool
}

// acquire locks the slot for one operation. It fails if the page was
// closed while the caller waited.
func (s *slot) acquire() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("page %q: %w", s.id, ErrPageNotFound)
	}
	s.lastUsed.Store(time.Now().UnixNano())
	return nil
}

func (s *slot) release() {
	s.mu.Unlock()
}

func (s *slot) lastUsedAt() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// Registry maps page identifiers to live pages and tracks the current page.
// All mutations happen under one mutex so that reassigning the current
// pointer on removal cannot race with a switch or an insert.
type Registry struct {
	mu      sync.Mutex
	slots   map[PageID]*slot
	order   []PageID // insertion order, oldest first
	current PageID
	limit   int // 0 means unlimited
	newID   func() PageID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		slots: make(map[PageID]*slot),
		newID: func() PageID { return PageID(uuid.NewString()) },
	}
}

// SetLimit caps the number of pages Add accepts. Zero removes the cap.
func (r *Registry) SetLimit(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limit = n
}

// Full reports whether the page limit has been reached.
func (r *Registry) Full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit > 0 && len(r.order) >= r.limit
}

// Add registers a live page under a fresh identifier and makes it current.
func (r *Registry) Add(page EnginePage) (PageID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limit > 0 && len(r.order) >= r.limit {
		return "", fmt.Errorf("maximum number of pages (%d) reached: %w", r.limit, ErrPageLimit)
	}

	id := r.newID()
	for _, taken := r.slots[id]; taken; _, taken = r.slots[id] {
		id = r.newID()
	}

	s := &slot{id: id, page: page, createdAt: time.Now()}
	s.lastUsed.Store(s.createdAt.UnixNano())

	r.slots[id] = s
	r.order = append(r.order, id)
	r.current = id
	return id, nil
}

// Get returns the live page registered under id.
func (r *Registry) Get(id PageID) (EnginePage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, fmt.Errorf("page %q: %w", id, ErrPageNotFound)
	}
	return s.page, nil
}

// Current returns the identifier of the current page.
func (r *Registry) Current() (PageID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == "" {
		return "", ErrNoActivePage
	}
	return r.current, nil
}

// resolve returns the slot for id, or for the current page when id is empty.
func (r *Registry) resolve(id PageID) (*slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(id)
}

func (r *Registry) resolveLocked(id PageID) (*slot, error) {
	if id == "" {
		if r.current == "" {
			return nil, ErrNoActivePage
		}
		id = r.current
	}

	s, ok := r.slots[id]
	if !ok {
		return nil, fmt.Errorf("page %q: %w", id, ErrPageNotFound)
	}
	return s, nil
}

// SwitchTo makes id the current page. The pointer is unchanged on failure.
func (r *Registry) SwitchTo(id PageID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.slots[id]; !ok {
		return fmt.Errorf("page %q: %w", id, ErrPageNotFound)
	}
	r.current = id
	return nil
}

// Remove drops the entry for id (the current page when id is empty) and
// returns its slot so the caller can release the engine page. If the
// removed page was current, the oldest remaining page becomes current.
func (r *Registry) Remove(id PageID) (*slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.resolveLocked(id)
	if err != nil {
		return nil, err
	}
	id = s.id

	delete(r.slots, id)
	r.order = slices.DeleteFunc(r.order, func(k PageID) bool { return k == id })

	if r.current == id {
		r.current = ""
		if len(r.order) > 0 {
			r.current = r.order[0]
		}
	}
	return s, nil
}

// drain removes every entry and clears the current pointer.
func (r *Registry) drain() []*slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	slots := make([]*slot, 0, len(r.order))
	for _, id := range r.order {
		slots = append(slots, r.slots[id])
	}
	r.slots = make(map[PageID]*slot)
	r.order = nil
	r.current = ""
	return slots
}

// Len returns the number of registered pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// IDs returns the registered identifiers in insertion order.
func (r *Registry) IDs() []PageID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Info returns metadata for every registered page in insertion order.
func (r *Registry) Info() []PageInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]PageInfo, 0, len(r.order))
	for _, id := range r.order {
		s := r.slots[id]
		infos = append(infos, PageInfo{
			ID:         id,
			URL:        s.page.URL(),
			Current:    id == r.current,
			CreatedAt:  s.createdAt,
			LastUsedAt: s.lastUsedAt(),
		})
	}
	return infos
}

// Lookup returns metadata for id, or for the current page when id is empty.
func (r *Registry) Lookup(id PageID) (PageInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.resolveLocked(id)
	if err != nil {
		return PageInfo{}, err
	}
	return PageInfo{
		ID:         s.id,
		URL:        s.page.URL(),
		Current:    s.id == r.current,
		CreatedAt:  s.createdAt,
		LastUsedAt: s.lastUsedAt(),
	}, nil
}
