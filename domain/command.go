package domain

import "strings"

// CommandKind classifies one trimmed line received while a session is active.
type CommandKind int

const (
	CommandEmpty CommandKind = iota
	CommandQuit
	CommandUsers
	CommandChat
)

// Command is a parsed client line.
type Command struct {
	Kind CommandKind
	Text string
}

// ParseCommand recognizes /quit, /exit and /users case-insensitively.
// Any other non-empty line is chat content.
func ParseCommand(line string) Command {
	text := TrimLine(line)
	switch {
	case text == "":
		return Command{Kind: CommandEmpty}
	case strings.EqualFold(text, "/quit"), strings.EqualFold(text, "/exit"):
		return Command{Kind: CommandQuit, Text: text}
	case strings.EqualFold(text, "/users"):
		return Command{Kind: CommandUsers, Text: text}
	default:
		return Command{Kind: CommandChat, Text: text}
	}
}
