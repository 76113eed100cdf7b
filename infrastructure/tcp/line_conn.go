package tcp

import (
	"bufio"
	"chat-relay/contract"
	"chat-relay/errors"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	DefaultMaxLineLength = 4096
	DefaultWriteTimeout  = 10 * time.Second
)

var _ contract.Conn = (*LineConn)(nil)

type Options struct {
	MaxLineLength int
	WriteTimeout  time.Duration
}

// LineConn speaks newline terminated UTF-8 over a stream socket.
type LineConn struct {
	conn          net.Conn
	scanner       *bufio.Scanner
	maxLineLength int
	writeTimeout  time.Duration

	// set by the first failed write, callers serialize WriteLine
	writeErr error

	closeOnce sync.Once
	closeErr  error
}

func NewLineConn(conn net.Conn, opts Options) *LineConn {
	if opts.MaxLineLength <= 0 {
		opts.MaxLineLength = DefaultMaxLineLength
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	scanner := bufio.NewScanner(conn)
	// the buffer must also hold the \r\n terminator
	scanner.Buffer(make([]byte, 0, min(opts.MaxLineLength+2, 4096)), opts.MaxLineLength+2)
	return &LineConn{
		conn:          conn,
		scanner:       scanner,
		maxLineLength: opts.MaxLineLength,
		writeTimeout:  opts.WriteTimeout,
	}
}

// ReadLine returns the next line without its terminator.
// A peer that closes cleanly yields io.EOF.
func (c *LineConn) ReadLine() (string, error) {
	if c.scanner.Scan() {
		line := strings.TrimSuffix(c.scanner.Text(), "\r")
		if len(line) > c.maxLineLength {
			return "", errors.ErrLineTooLong
		}
		return line, nil
	}
	err := c.scanner.Err()
	switch {
	case err == nil:
		return "", io.EOF
	case stderrors.Is(err, bufio.ErrTooLong):
		return "", fmt.Errorf("%w: %w", errors.ErrLineTooLong, err)
	default:
		return "", err
	}
}

// WriteLine writes line plus a terminator before the write deadline.
// After a failed write the stream may end in a partial line, so every later
// write is refused with the first error.
func (c *LineConn) WriteLine(line string) error {
	if c.writeErr != nil {
		return fmt.Errorf("stream broken by earlier write: %w", c.writeErr)
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		c.writeErr = err
		return err
	}
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		c.writeErr = err
		return err
	}
	return nil
}

// Close shuts the input side, then the output side, then the socket.
// Every step runs even if an earlier one fails.
func (c *LineConn) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if half, ok := c.conn.(interface {
			CloseRead() error
			CloseWrite() error
		}); ok {
			errs = append(errs, ignoreClosed(half.CloseRead()), ignoreClosed(half.CloseWrite()))
		}
		errs = append(errs, ignoreClosed(c.conn.Close()))
		c.closeErr = stderrors.Join(errs...)
	})
	return c.closeErr
}

func (c *LineConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func ignoreClosed(err error) error {
	// a peer that already went away makes shutdown(2) fail with ENOTCONN
	if err == nil ||
		stderrors.Is(err, net.ErrClosed) ||
		stderrors.Is(err, io.ErrClosedPipe) ||
		stderrors.Is(err, syscall.ENOTCONN) {
		return nil
	}
	return err
}
