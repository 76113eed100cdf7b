package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Command
	}{
		{"empty line", "", Command{Kind: CommandEmpty}},
		{"blank line", "  \t\r\n", Command{Kind: CommandEmpty}},
		{"quit lower", "/quit", Command{Kind: CommandQuit, Text: "/quit"}},
		{"quit mixed case", "/QuIt\r\n", Command{Kind: CommandQuit, Text: "/QuIt"}},
		{"exit", " /EXIT ", Command{Kind: CommandQuit, Text: "/EXIT"}},
		{"users", "/Users", Command{Kind: CommandUsers, Text: "/Users"}},
		{"chat", "  hello there  ", Command{Kind: CommandChat, Text: "hello there"}},
		{"unknown slash command is chat", "/nick bob", Command{Kind: CommandChat, Text: "/nick bob"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ParseCommand(tt.line))
		})
	}
}

func TestOutbound_Render(t *testing.T) {
	req := require.New(t)
	req.Equal("[Broadcast] Bob: hello", ChatMessage("Bob", "hello").Render())
	req.Equal("Alice joined the chat", JoinNotice("Alice").Render())
	req.Equal("Alice left the chat", LeaveNotice("Alice").Render())
	req.Equal(ShutdownNotice, SystemNotice(ShutdownNotice).Render())
}

func TestNewSessionID(t *testing.T) {
	req := require.New(t)
	req.Equal(SessionID("Client-1"), NewSessionID(1))
	req.Equal("Client-42", NewSessionID(42).String())
	req.Equal("Welcome to the chat room! Your ID is: Client-7", Welcome(NewSessionID(7)))
	req.Equal("active", StateActive.String())
}
