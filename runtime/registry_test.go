package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSession(n uint64) (*Session, *stubConn) {
	conn := newStubConn()
	return NewSession(domain.NewSessionID(n), conn), conn
}

func TestRegistry_Register_And_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	session, _ := newTestSession(1)

	// Given an empty registry
	req.Equal(0, registry.Count())

	// When a session is registered
	req.NoError(registry.Register(session.ID(), session))

	// Then it is counted and listed
	req.Equal(1, registry.Count())
	req.Equal([]*Session{session}, registry.Sessions())

	// When it is removed twice
	removed, ok := registry.Unregister(session.ID())
	req.True(ok)
	req.Same(session, removed)
	_, ok = registry.Unregister(session.ID())

	// Then the second removal is a no-op
	req.False(ok)
	req.Equal(0, registry.Count())
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first, _ := newTestSession(1)
	second := NewSession(first.ID(), newStubConn())

	req.NoError(registry.Register(first.ID(), first))

	// When the same id is registered again
	err := registry.Register(second.ID(), second)

	// Then it is refused and the first entry stays
	req.ErrorIs(err, errors.ErrDuplicateSession)
	req.Equal(1, registry.Count())
	req.Same(first, registry.Sessions()[0])
}

func TestRegistry_ForEachExcept(t *testing.T) {
	req := require.New(t)
	registry := NewRegistryWithShards(4)
	for i := uint64(1); i <= 10; i++ {
		session, _ := newTestSession(i)
		req.NoError(registry.Register(session.ID(), session))
	}
	excluded := domain.NewSessionID(3)

	// When iterating every session but one
	seen := map[domain.SessionID]int{}
	registry.ForEachExcept(excluded, func(s *Session) { seen[s.ID()]++ })

	// Then each other session is visited exactly once
	req.Len(seen, 9)
	req.NotContains(seen, excluded)
	for id, n := range seen {
		req.Equal(1, n, "session %s", id)
	}
}

func TestRegistry_ForEachExcept_Callback_May_Mutate(t *testing.T) {
	req := require.New(t)
	registry := NewRegistryWithShards(1)
	for i := uint64(1); i <= 3; i++ {
		session, _ := newTestSession(i)
		req.NoError(registry.Register(session.ID(), session))
	}

	// When the callback unregisters sessions while iterating
	registry.ForEachExcept("", func(s *Session) { registry.Unregister(s.ID()) })

	// Then no deadlock occurs and the registry is empty
	req.Equal(0, registry.Count())
}

func TestRegistry_Concurrent_Register_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	const registered, removed = 500, 200

	sessions := make([]*Session, registered)
	for i := range sessions {
		sessions[i], _ = newTestSession(uint64(i + 1))
	}

	// Given K sessions registered concurrently
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := registry.Register(s.ID(), s); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	// When J of them are unregistered concurrently, each twice, while readers iterate
	for _, s := range sessions[:removed] {
		wg.Add(3)
		go func() {
			defer wg.Done()
			registry.Unregister(s.ID())
		}()
		go func() {
			defer wg.Done()
			registry.Unregister(s.ID())
		}()
		go func() {
			defer wg.Done()
			registry.ForEachExcept(s.ID(), func(*Session) {})
		}()
	}
	wg.Wait()

	// Then K-J sessions remain
	req.Equal(registered-removed, registry.Count())
	req.Len(registry.Sessions(), registered-removed)
}
