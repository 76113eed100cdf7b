package client

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestClient_Run(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer listener.Close()

	// Given a relay greeting, reading the name and hanging up
	received := make(chan string, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("Please enter your username:\n"))
		line, _ := bufio.NewReader(conn).ReadString('\n')
		received <- strings.TrimSpace(line)
		_, _ = conn.Write([]byte("Welcome, Alice! Start chatting...\n"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, log, Config{ServerAddr: listener.Addr().String()})
	req.NoError(err)

	// When the user types a name
	var out bytes.Buffer
	req.NoError(c.Run(ctx, strings.NewReader("Alice\n"), &out))

	// Then it reached the relay and every server line was printed
	req.Equal("Alice", <-received)
	req.Equal("Please enter your username:\nWelcome, Alice! Start chatting...\n", out.String())
}

func TestClient_Dial_Unreachable(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	_, err = Dial(context.Background(), log, Config{ServerAddr: addr})
	require.Error(t, err)
}

func TestClient_Format(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	plain := New(log, nil, false)
	req.Equal("[Broadcast] Bob: hi", plain.Format("[Broadcast] Bob: hi"))

	coloured := New(log, nil, true)
	for _, line := range []string{"[Broadcast] Bob: hi", "Bob joined the chat", "Bob left the chat", "Goodbye!"} {
		req.Contains(coloured.Format(line), line)
	}
}
