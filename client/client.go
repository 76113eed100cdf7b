// Package client is a minimal terminal peer for the relay: one goroutine
// prints what the server sends, another forwards what the user types.
package client

import (
	"bufio"
	"chat-relay/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/gookit/color"
)

type Client struct {
	log     *slog.Logger
	conn    net.Conn
	colours bool
}

func Dial(ctx context.Context, log *slog.Logger, config Config) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", config.ServerAddr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddr, err)
	}
	return New(log, conn, config.Colours), nil
}

func New(log *slog.Logger, conn net.Conn, colours bool) *Client {
	return &Client{log: log, conn: conn, colours: colours}
}

// Run relays in to the server and server lines to out until the server
// hangs up, in is exhausted, or ctx is done.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = c.conn.Close()
	}()

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- c.forward(in)
	}()

	err := c.print(out)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return err
	}
	select {
	case err := <-sendErr:
		return err
	default:
		return nil
	}
}

// print writes server lines to out until the connection ends.
func (c *Client) print(out io.Writer) error {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		if _, err := fmt.Fprintln(out, c.Format(scanner.Text())); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("connection error: %w", err)
	}
	return nil
}

// forward sends every input line, then half-closes so the server sees EOF.
func (c *Client) forward(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if _, err := io.WriteString(c.conn, scanner.Text()+"\n"); err != nil {
			return err
		}
	}
	c.log.Debug("Input exhausted, closing the write side")
	if tcp, ok := c.conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}
	return scanner.Err()
}

// Format colours a server line by kind: chat, join, leave or anything else.
func (c *Client) Format(line string) string {
	if !c.colours {
		return line
	}
	switch {
	case strings.HasPrefix(line, domain.BroadcastMarker):
		return color.New(color.FgCyan).Render(line)
	case strings.HasSuffix(line, domain.JoinedMarker):
		return color.New(color.FgGreen).Render(line)
	case strings.HasSuffix(line, domain.LeftMarker):
		return color.New(color.FgYellow).Render(line)
	default:
		return color.New(color.FgGray).Render(line)
	}
}
