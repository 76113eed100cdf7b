package domain

import (
	"fmt"
	"strings"
)

// Server to client texts. One line each, the transport appends the terminator.
const (
	BroadcastMarker = "[Broadcast]"
	JoinedMarker    = "joined the chat"
	LeftMarker      = "left the chat"

	NamePrompt     = "Please enter your username:"
	Farewell       = "Goodbye!"
	ShutdownNotice = "Server is shutting down"
)

// Welcome is the first line a new session receives.
func Welcome(id SessionID) string {
	return fmt.Sprintf("Welcome to the chat room! Your ID is: %s", id)
}

// NameAccepted is sent privately once a display name has been adopted.
func NameAccepted(name string) string {
	return fmt.Sprintf("Welcome, %s! Start chatting...", name)
}

// OnlineUsers is the private reply to /users.
func OnlineUsers(count int) string {
	return fmt.Sprintf("Online users: %d", count)
}

// OutboundKind tells how an outbound broadcast is rendered.
type OutboundKind int

const (
	KindChat OutboundKind = iota
	KindJoin
	KindLeave
	KindSystem
)

func (k OutboundKind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindJoin:
		return "join"
	case KindLeave:
		return "leave"
	case KindSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Outbound is a message fanned out to every session but the excluded one.
type Outbound struct {
	Kind   OutboundKind
	Author string
	Text   string
}

func ChatMessage(author, text string) Outbound {
	return Outbound{Kind: KindChat, Author: author, Text: text}
}

func JoinNotice(author string) Outbound {
	return Outbound{Kind: KindJoin, Author: author}
}

func LeaveNotice(author string) Outbound {
	return Outbound{Kind: KindLeave, Author: author}
}

func SystemNotice(text string) Outbound {
	return Outbound{Kind: KindSystem, Text: text}
}

// Render produces the wire line. Only chat lines carry the broadcast marker.
func (o Outbound) Render() string {
	switch o.Kind {
	case KindChat:
		return fmt.Sprintf("%s %s: %s", BroadcastMarker, o.Author, o.Text)
	case KindJoin:
		return fmt.Sprintf("%s %s", o.Author, JoinedMarker)
	case KindLeave:
		return fmt.Sprintf("%s %s", o.Author, LeftMarker)
	default:
		return o.Text
	}
}

// TrimLine strips the line terminator and surrounding blanks.
func TrimLine(line string) string {
	return strings.TrimSpace(strings.TrimRight(line, "\r\n"))
}
