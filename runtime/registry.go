package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
)

const defaultShardCount = 16

type shard struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
}

// Registry is the directory of sessions eligible to receive broadcasts.
// Entries are spread over independently locked shards so that register,
// unregister and iteration from many session loops rarely contend.
type Registry struct {
	shards []*shard
	count  atomic.Int64
}

func NewRegistry() *Registry {
	return NewRegistryWithShards(defaultShardCount)
}

func NewRegistryWithShards(n int) *Registry {
	if n < 1 {
		n = 1
	}
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{sessions: make(map[domain.SessionID]*Session)}
	}
	return &Registry{shards: shards}
}

func (r *Registry) shardFor(id domain.SessionID) *shard {
	return r.shards[xxhash.Sum64String(string(id))%uint64(len(r.shards))]
}

// Register inserts a session. It fails only if the id is already present.
func (r *Registry) Register(id domain.SessionID, session *Session) error {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		return errors.ErrDuplicateSession
	}
	s.sessions[id] = session
	r.count.Add(1)
	return nil
}

// Unregister removes id and returns the removed session.
// Removing an absent id reports false and is not an error.
func (r *Registry) Unregister(id domain.SessionID) (*Session, bool) {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	delete(s.sessions, id)
	r.count.Add(-1)
	return session, true
}

// ForEachExcept calls fn once for every registered session but excluded.
// Each shard is snapshotted under its read lock and fn runs outside any lock,
// so fn may itself register or unregister sessions.
func (r *Registry) ForEachExcept(excluded domain.SessionID, fn func(*Session)) {
	for _, s := range r.shards {
		for _, session := range s.snapshot() {
			if session.ID() == excluded {
				continue
			}
			fn(session)
		}
	}
}

// Sessions returns every registered session.
func (r *Registry) Sessions() []*Session {
	var all []*Session
	for _, s := range r.shards {
		all = append(all, s.snapshot()...)
	}
	return all
}

func (r *Registry) Count() int {
	return int(r.count.Load())
}

func (s *shard) snapshot() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Values(s.sessions)
}
