package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Session is one accepted connection plus its protocol state.
//
// Writes are serialized by writeMu: private replies from the session's own loop
// and broadcasts from other loops may target it at the same time.
// The liveness flag goes from live to dead exactly once, in Close.
type Session struct {
	id          domain.SessionID
	conn        contract.Conn
	connectedAt time.Time

	nameMu sync.RWMutex
	name   string

	state atomic.Int32
	live  atomic.Bool

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func NewSession(id domain.SessionID, conn contract.Conn) *Session {
	s := &Session{
		id:          id,
		conn:        conn,
		connectedAt: time.Now().UTC(),
		name:        string(id),
	}
	s.live.Store(true)
	return s
}

func (s *Session) ID() domain.SessionID { return s.id }

func (s *Session) Name() string {
	s.nameMu.RLock()
	defer s.nameMu.RUnlock()
	return s.name
}

func (s *Session) setName(name string) {
	s.nameMu.Lock()
	defer s.nameMu.Unlock()
	s.name = name
}

func (s *Session) State() domain.SessionState {
	return domain.SessionState(s.state.Load())
}

func (s *Session) setState(state domain.SessionState) {
	s.state.Store(int32(state))
}

func (s *Session) IsLive() bool { return s.live.Load() }

func (s *Session) RemoteAddr() string { return s.conn.RemoteAddr() }

func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// Send writes one line to the peer. Concurrent callers are queued, never interleaved.
//
// A failed write may have left part of the line on the wire, so the session
// is closed on the spot: nothing may follow a torn line. Closing also fails
// the session's pending read, which hands teardown to its own loop.
func (s *Session) Send(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !s.live.Load() {
		return errors.ErrSessionClosed
	}
	if err := s.conn.WriteLine(line); err != nil {
		_ = s.Close()
		return fmt.Errorf("send to %s: %w", s.id, err)
	}
	return nil
}

// Close marks the session dead and releases its connection.
// Only the first call does anything; a pending ReadLine fails once the connection is closed.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.live.Store(false)
		err = s.conn.Close()
	})
	return err
}
