package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"killergame/internal/game"
)

// MemoryStore keeps sessions in memory. It honors the same copy semantics as
// the durable store (a saved session is a snapshot, not a shared pointer), so
// engine tests exercise the real write-through contract. Not crash-safe.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*game.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*game.Session),
	}
}

// Save stores a snapshot of the session.
func (s *MemoryStore) Save(_ context.Context, sess *game.Session) error {
	snapshot, err := cloneSession(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.RoomID] = snapshot
	return nil
}

// Get returns a copy of the stored session for the room.
func (s *MemoryStore) Get(_ context.Context, roomID int64) (*game.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[roomID]
	if !exists {
		return nil, fmt.Errorf("room %d: %w", roomID, game.ErrNotFound)
	}
	return cloneSession(sess)
}

// Active returns copies of every session whose state is neither Idle nor Ended.
func (s *MemoryStore) Active(_ context.Context) ([]*game.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*game.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if !sess.State.Running() {
			continue
		}
		c, err := cloneSession(sess)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Delete removes the room's session, if any.
func (s *MemoryStore) Delete(_ context.Context, roomID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, roomID)
	return nil
}

func cloneSession(sess *game.Session) (*game.Session, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("cloning session: %w", err)
	}
	clone := &game.Session{}
	if err := json.Unmarshal(raw, clone); err != nil {
		return nil, fmt.Errorf("cloning session: %w", err)
	}
	if clone.Cursed == nil {
		clone.Cursed = make(map[int64]bool)
	}
	if clone.Votes == nil {
		clone.Votes = make(map[int64]int64)
	}
	return clone, nil
}
