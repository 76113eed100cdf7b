package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"io"
	"net"
	"syscall"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

// serveSession drives one session from greeting to teardown.
func (s *Server) serveSession(session *Session) {
	ctx := context.Background()
	defer s.teardown(session)

	session.setState(domain.StateGreeting)
	s.reply(session, domain.Welcome(session.ID()))
	s.reply(session, domain.NamePrompt)

	session.setState(domain.StateNamingPrompt)
	line, err := session.conn.ReadLine()
	if err != nil {
		s.logReadEnd(session, err)
		return
	}
	if name := s.displayName(line); name != "" {
		session.setName(name)
		s.reply(session, domain.NameAccepted(name))
		s.log.Info("Client named", "session", session.ID(), "name", name)
		s.broadcaster.Broadcast(ctx, domain.JoinNotice(name), session.ID())
	}

	session.setState(domain.StateActive)
	for {
		line, err := session.conn.ReadLine()
		if err != nil {
			s.logReadEnd(session, err)
			return
		}
		cmd := domain.ParseCommand(line)
		switch cmd.Kind {
		case domain.CommandEmpty:
		case domain.CommandQuit:
			s.reply(session, domain.Farewell)
			s.log.Info("Client quit", "session", session.ID(), "name", session.Name())
			return
		case domain.CommandUsers:
			s.reply(session, domain.OnlineUsers(s.registry.Count()))
		case domain.CommandChat:
			content := cmd.Text
			if s.censor != nil {
				content = s.censor.Censor(content)
			}
			s.broadcaster.Broadcast(ctx, domain.ChatMessage(session.Name(), content), session.ID())
		}
	}
}

// teardown releases the connection, removes the session and announces the
// departure. Only the caller that actually removed the entry announces it.
func (s *Server) teardown(session *Session) {
	session.setState(domain.StateClosing)
	if err := session.Close(); err != nil {
		s.log.Warn("Releasing connection failed", "session", session.ID(), "name", session.Name(), "err", err)
	}
	session.setState(domain.StateClosed)

	if _, removed := s.registry.Unregister(session.ID()); !removed {
		return
	}
	s.metrics.SessionClosed()
	s.log.Info("Client disconnected", "session", session.ID(), "name", session.Name(), "online", s.registry.Count())
	// every remaining peer is being closed too
	if s.stopping.Load() {
		return
	}
	s.broadcaster.Broadcast(context.Background(), domain.LeaveNotice(session.Name()), session.ID())
}

func (s *Server) reply(session *Session, line string) {
	if err := session.Send(line); err != nil {
		s.log.Debug("Reply not delivered", "session", session.ID(), "err", err)
	}
}

func (s *Server) displayName(line string) string {
	name := domain.TrimLine(line)
	if limit := s.config.MaxNameLength; limit > 0 && utf8.RuneCountInString(name) > limit {
		name = string([]rune(name)[:limit])
	}
	return name
}

func (s *Server) logReadEnd(session *Session, err error) {
	switch {
	case isDisconnect(err) || !session.IsLive():
		s.log.Info("Client connection closed", "session", session.ID(), "name", session.Name())
	case stderrors.Is(err, errors.ErrLineTooLong):
		s.log.Warn("Client sent an oversized line", "session", session.ID(), "name", session.Name(), "err", err)
	default:
		s.log.Error("Reading from client failed", "session", session.ID(), "name", session.Name(), "err", err)
	}
}

// isDisconnect reports errors that only mean the peer or the server hung up.
func isDisconnect(err error) bool {
	return stderrors.Is(err, io.EOF) ||
		stderrors.Is(err, io.ErrUnexpectedEOF) ||
		stderrors.Is(err, io.ErrClosedPipe) ||
		stderrors.Is(err, net.ErrClosed) ||
		stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, syscall.EPIPE) ||
		websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived,
			websocket.CloseAbnormalClosure)
}
