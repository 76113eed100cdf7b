package runtime

import (
	"net"
	"sync"
)

// stubConn records written lines. ReadLine blocks until Close.
type stubConn struct {
	mu       sync.Mutex
	lines    []string
	writeErr error
	closed   chan struct{}
	once     sync.Once
}

func newStubConn() *stubConn {
	return &stubConn{closed: make(chan struct{})}
}

func (c *stubConn) ReadLine() (string, error) {
	<-c.closed
	return "", net.ErrClosed
}

func (c *stubConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.lines = append(c.lines, line)
	return nil
}

func (c *stubConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *stubConn) RemoteAddr() string { return "stub" }

func (c *stubConn) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// stalledConn is a peer that stopped reading: WriteLine blocks until Close.
type stalledConn struct {
	stubConn
}

func newStalledConn() *stalledConn {
	return &stalledConn{stubConn: stubConn{closed: make(chan struct{})}}
}

func (c *stalledConn) WriteLine(string) error {
	<-c.closed
	return net.ErrClosed
}
