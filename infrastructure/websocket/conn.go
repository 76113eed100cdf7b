// Package websocket adapts gorilla WebSocket connections to the line protocol:
// one text frame carries exactly one line, in both directions.
package websocket

import (
	"chat-relay/contract"
	"chat-relay/errors"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gows "github.com/gorilla/websocket"
)

const (
	DefaultMaxLineLength = 4096
	DefaultWriteTimeout  = 10 * time.Second
	closeGracePeriod     = time.Second
)

var _ contract.Conn = (*Conn)(nil)

type Options struct {
	MaxLineLength int
	WriteTimeout  time.Duration
}

// Conn wraps a gorilla connection.
// Writes are serialized by the owning session; Close may race with them,
// gorilla allows Close and WriteControl concurrently with any other call.
type Conn struct {
	conn         *gows.Conn
	writeTimeout time.Duration
	remote       string

	closeOnce sync.Once
	closeErr  error
}

func NewConn(conn *gows.Conn, opts Options) *Conn {
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = DefaultMaxLineLength
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	conn.SetReadLimit(int64(opts.MaxLineLength))
	return &Conn{
		conn:         conn,
		writeTimeout: opts.WriteTimeout,
		remote:       conn.RemoteAddr().String(),
	}
}

// ReadLine returns the payload of the next text frame. Other data frames are skipped.
func (c *Conn) ReadLine() (string, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if stderrors.Is(err, gows.ErrReadLimit) {
				return "", fmt.Errorf("%w: %w", errors.ErrLineTooLong, err)
			}
			return "", err
		}
		if typ != gows.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *Conn) WriteLine(line string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(gows.TextMessage, []byte(line))
}

// Close sends a normal close frame, best effort, then drops the connection.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		msg := gows.FormatCloseMessage(gows.CloseNormalClosure, "")
		_ = c.conn.WriteControl(gows.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *Conn) RemoteAddr() string { return c.remote }
