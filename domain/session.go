// Package domain contains core concepts of the chat relay.
// This file defines session identity and the session lifecycle states.
// No runtime, network, or UI logic should be added here.
package domain

import "fmt"

// SessionID identifies one accepted connection for the lifetime of the process.
type SessionID string

const sessionIDPrefix = "Client-"

// NewSessionID formats the n-th identifier minted by the acceptor.
func NewSessionID(n uint64) SessionID {
	return SessionID(fmt.Sprintf("%s%d", sessionIDPrefix, n))
}

func (id SessionID) String() string { return string(id) }

// SessionState is a step of the per-connection state machine.
// Transitions only move forward: Greeting -> NamingPrompt -> Active -> Closing -> Closed,
// with NamingPrompt and Active allowed to jump straight to Closing.
type SessionState int32

const (
	StateGreeting SessionState = iota
	StateNamingPrompt
	StateActive
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateNamingPrompt:
		return "naming"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
