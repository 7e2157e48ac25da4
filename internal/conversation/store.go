package conversation

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store keeps ordered turn histories keyed by conversation id. The history is
// replayed to the dialog engine on every turn, so insertion order is the
// conversational order.
type Store interface {
	// GetOrCreate returns the history for id, minting a fresh id with an
	// empty history when id is empty or unknown.
	GetOrCreate(ctx context.Context, id string) (string, []Turn, error)
	// Append adds turns in the order given. A round-trip's user+assistant
	// pair must be passed in one call so it lands adjacently even when
	// concurrent round-trips target the same conversation.
	Append(ctx context.Context, id string, turns ...Turn) error
	Read(ctx context.Context, id string) ([]Turn, error)
	// Delete removes a conversation. Unknown ids are a no-op.
	Delete(ctx context.Context, id string) error
	Close() error
	Count() int
}

type history struct {
	mu    sync.Mutex
	turns []Turn
}

// MemoryStore is the in-process default. The outer lock guards only the map;
// each conversation carries its own lock so appends serialize per id without
// blocking other conversations.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*history
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*history)}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, id string) (string, []Turn, error) {
	if id != "" {
		s.mu.RLock()
		h, ok := s.conversations[id]
		s.mu.RUnlock()
		if ok {
			return id, h.snapshot(), nil
		}
	} else {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.conversations[id]
	if !ok {
		h = &history{}
		s.conversations[id] = h
	}
	return id, h.snapshot(), nil
}

func (s *MemoryStore) Append(_ context.Context, id string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	h, ok := s.conversations[id]
	if !ok {
		h = &history{}
		s.conversations[id] = h
	}
	s.mu.Unlock()

	h.mu.Lock()
	h.turns = append(h.turns, turns...)
	h.mu.Unlock()
	return nil
}

func (s *MemoryStore) Read(_ context.Context, id string) ([]Turn, error) {
	s.mu.RLock()
	h, ok := s.conversations[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return h.snapshot(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

func (h *history) snapshot() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}
