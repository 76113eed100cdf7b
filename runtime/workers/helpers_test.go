package workers

import (
	"context"
	"net"
)

type fakeListener struct{}

func (l *fakeListener) Accept() (net.Conn, error) { return nil, net.ErrClosed }
func (l *fakeListener) Close() error              { return nil }
func (l *fakeListener) Addr() net.Addr            { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }

type recordingServer struct {
	served net.Listener
}

func (s *recordingServer) Serve(_ context.Context, listener net.Listener) error {
	s.served = listener
	return nil
}
