// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vocalis Contributors

package session

import (
	"context"
	"sync"

	vocerr "github.com/vocalis-dev/vocalis/pkg/errors"
)

// MemoryStore is the in-process Store. Each session carries its own lock
// so concurrent appends to one session serialize instead of racing, while
// independent sessions never contend with each other.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

type memorySession struct {
	mu    sync.Mutex
	turns []Turn
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
	}
}

// Append adds a turn to the end of the session's history, creating the
// session if it does not exist yet.
func (s *MemoryStore) Append(_ context.Context, sessionID string, turn Turn) error {
	if sessionID == "" {
		return vocerr.New(vocerr.CodeSessionAppendInvalid, "session id must not be empty")
	}
	if turn.Role != RoleUser && turn.Role != RoleBot {
		return vocerr.Errorf(vocerr.CodeSessionAppendInvalid, "unknown turn role %q", turn.Role)
	}

	sess := s.session(sessionID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.turns = append(sess.turns, turn)
	return nil
}

// History returns a snapshot copy of the session's turns in insertion
// order. An unknown session yields an empty history, not an error.
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]Turn, len(sess.turns))
	copy(out, sess.turns)
	return out, nil
}

// Len returns the number of turns recorded for the session.
func (s *MemoryStore) Len(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return 0, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.turns), nil
}

func (s *MemoryStore) Close() error { return nil }

// session returns the per-key session, creating it lazily.
func (s *MemoryStore) session(sessionID string) *memorySession {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[sessionID]; ok {
		return sess
	}
	sess = &memorySession{}
	s.sessions[sessionID] = sess
	return sess
}
