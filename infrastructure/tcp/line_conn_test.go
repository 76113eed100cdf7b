package tcp

import (
	"bufio"
	"chat-relay/errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// tcpPair returns both ends of a loopback connection.
func tcpPair(t *testing.T) (server net.Conn, client net.Conn) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, _ := listener.Accept()
		accepted <- conn
	}()
	client, err = net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	server = <-accepted
	require.NotNil(t, server)
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return server, client
}

func TestLineConn_ReadLine(t *testing.T) {
	req := require.New(t)
	server, client := tcpPair(t)
	conn := NewLineConn(server, Options{})

	// Given a peer sending LF and CRLF terminated lines, then hanging up
	_, err := io.WriteString(client, "hello\r\nworld\n\n")
	req.NoError(err)
	req.NoError(client.(*net.TCPConn).CloseWrite())

	// Then each line comes without terminator and the end is io.EOF
	for _, want := range []string{"hello", "world", ""} {
		line, err := conn.ReadLine()
		req.NoError(err)
		req.Equal(want, line)
	}
	_, err = conn.ReadLine()
	req.ErrorIs(err, io.EOF)
}

func TestLineConn_ReadLine_Too_Long(t *testing.T) {
	req := require.New(t)
	server, client := tcpPair(t)
	conn := NewLineConn(server, Options{MaxLineLength: 8})

	go func() { _, _ = io.WriteString(client, strings.Repeat("a", 64)+"\n") }()

	_, err := conn.ReadLine()
	req.ErrorIs(err, errors.ErrLineTooLong)
}

func TestLineConn_ReadLine_At_Limit(t *testing.T) {
	req := require.New(t)
	server, client := tcpPair(t)
	conn := NewLineConn(server, Options{MaxLineLength: 8})

	go func() { _, _ = io.WriteString(client, "12345678\r\n") }()

	line, err := conn.ReadLine()
	req.NoError(err)
	req.Equal("12345678", line)
}

func TestLineConn_WriteLine(t *testing.T) {
	req := require.New(t)
	server, client := tcpPair(t)
	conn := NewLineConn(server, Options{WriteTimeout: time.Second})

	req.NoError(conn.WriteLine("Goodbye!"))

	reader := bufio.NewReader(client)
	line, err := reader.ReadString('\n')
	req.NoError(err)
	req.Equal("Goodbye!\n", line)
}

func TestLineConn_WriteLine_Timeout_Breaks_Stream(t *testing.T) {
	req := require.New(t)
	server, peer := net.Pipe()
	defer peer.Close()
	conn := NewLineConn(server, Options{WriteTimeout: 50 * time.Millisecond})
	defer conn.Close()

	// Given a peer that takes the first 12 bytes of a line and then stalls
	partial := make(chan string, 1)
	go func() {
		buf := make([]byte, 12)
		n, _ := io.ReadFull(peer, buf)
		partial <- string(buf[:n])
	}()

	// When the write times out halfway
	err := conn.WriteLine("[Broadcast] Alice: hello world")
	req.Error(err)
	req.Equal("[Broadcast] ", <-partial)

	// Then later lines are refused instead of being spliced onto the torn one
	received := make(chan int, 1)
	go func() {
		_ = peer.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, _ := peer.Read(make([]byte, 64))
		received <- n
	}()
	err = conn.WriteLine("[Broadcast] Bob: second")
	req.Error(err)
	req.Zero(<-received)
}

func TestLineConn_Close(t *testing.T) {
	req := require.New(t)
	server, client := tcpPair(t)
	conn := NewLineConn(server, Options{})
	req.NotEmpty(conn.RemoteAddr())

	// When closed twice
	req.NoError(conn.Close())
	req.NoError(conn.Close())

	// Then the peer sees the end of stream and local reads fail
	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	_, err := client.Read(make([]byte, 1))
	req.ErrorIs(err, io.EOF)
	_, err = conn.ReadLine()
	req.Error(err)
}

func TestLineConn_Close_Unblocks_Reader(t *testing.T) {
	req := require.New(t)
	server, _ := tcpPair(t)
	conn := NewLineConn(server, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := conn.ReadLine()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	req.NoError(conn.Close())

	select {
	case err := <-done:
		// CloseRead makes the pending read see end of stream
		req.Error(err)
	case <-time.After(time.Second):
		req.Fail("Close should unblock a pending ReadLine")
	}
}
