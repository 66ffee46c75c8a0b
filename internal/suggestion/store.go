package suggestion

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrSuggestionNotFound is returned when no suggestion has the given id
	ErrSuggestionNotFound = errors.New("suggestion not found")

	// ErrDuplicateSuggestion is returned when an id is already taken
	ErrDuplicateSuggestion = errors.New("suggestion id already exists")

	// ErrStoreClosed is returned after Close
	ErrStoreClosed = errors.New("suggestion store closed")
)

// Suggestion is a stored proposal to replace a node's code
type Suggestion struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"sessionId"`
	OriginalCode string    `json:"originalCode"`
	ProposedCode string    `json:"proposedCode"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store keeps suggestions by id. Reads never remove entries.
type Store interface {
	Put(ctx context.Context, s *Suggestion) error
	Get(ctx context.Context, id string) (*Suggestion, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// MemoryOptions bounds a MemoryStore. Zero values disable the bound.
type MemoryOptions struct {
	// MaxEntries evicts the oldest suggestion once exceeded
	MaxEntries int
	// TTL expires suggestions older than this
	TTL time.Duration
	// Now overrides the clock (tests)
	Now func() time.Time
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // oldest first
	opts    MemoryOptions
	sweeper *cron.Cron
	closed  bool
}

// NewMemoryStore creates an in-memory store. When a TTL is set, expired
// entries are swept on a cron schedule until Close.
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &MemoryStore{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		opts:    opts,
	}

	if opts.TTL > 0 {
		s.sweeper = cron.New()
		if _, err := s.sweeper.AddFunc("@every "+sweepInterval(opts.TTL).String(), func() { s.Sweep() }); err == nil {
			s.sweeper.Start()
		}
	}
	return s
}

// sweepInterval runs the sweep at half the TTL, between one second and one minute
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < time.Second {
		return time.Second
	}
	if interval > time.Minute {
		return time.Minute
	}
	return interval.Truncate(time.Second)
}

// Put implements Store
func (s *MemoryStore) Put(ctx context.Context, sg *Suggestion) error {
	if sg == nil || sg.ID == "" {
		return fmt.Errorf("suggestion id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, exists := s.entries[sg.ID]; exists {
		return ErrDuplicateSuggestion
	}

	stored := *sg
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.opts.Now()
	}
	s.entries[sg.ID] = s.order.PushBack(&stored)

	for s.opts.MaxEntries > 0 && s.order.Len() > s.opts.MaxEntries {
		s.removeElement(s.order.Front())
	}
	return nil
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, id string) (*Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	el, ok := s.entries[id]
	if !ok {
		return nil, ErrSuggestionNotFound
	}

	sg := el.Value.(*Suggestion)
	if s.expired(sg) {
		return nil, ErrSuggestionNotFound
	}
	out := *sg
	return &out, nil
}

// Len implements Store
func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len(), nil
}

// Sweep removes expired suggestions and returns how many were removed
func (s *MemoryStore) Sweep() int {
	if s.opts.TTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	// Insertion order is creation order, so expired entries sit at the front
	for el := s.order.Front(); el != nil && s.expired(el.Value.(*Suggestion)); el = s.order.Front() {
		s.removeElement(el)
		removed++
	}
	return removed
}

// Close stops the sweeper and releases the entries
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.entries = make(map[string]*list.Element)
	s.order.Init()
	s.mu.Unlock()

	if s.sweeper != nil {
		<-s.sweeper.Stop().Done()
	}
	return nil
}

func (s *MemoryStore) expired(sg *Suggestion) bool {
	return s.opts.TTL > 0 && s.opts.Now().Sub(sg.CreatedAt) > s.opts.TTL
}

func (s *MemoryStore) removeElement(el *list.Element) {
	sg := s.order.Remove(el).(*Suggestion)
	delete(s.entries, sg.ID)
}
