// Package connstate tracks the connection lifecycle of one side of the bridge.
//
// Each side owns a single Tracker for the whole process. A connection attempt
// moves the tracker from Idle to Connecting (exclusively), then to Connected once
// the transport handshake succeeds, and back to Idle when the attempt is cancelled
// or its transport fails. Every attempt carries one cancellable context that is
// shared by the handshake and by all reader/writer tasks spawned for it.
package connstate

import "fmt"

type Side uint8

const (
	SideGame Side = iota
	SideRemote
)

func (s Side) String() string {
	switch s {
	case SideGame:
		return "game"
	case SideRemote:
		return "remote"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

type State uint8

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Observer is notified of every state transition of a side.
// Calls happen outside of the tracker lock, from whichever goroutine caused the transition.
type Observer interface {
	ConnectionStateChanged(side Side, state State)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(side Side, state State)

func (f ObserverFunc) ConnectionStateChanged(side Side, state State) {
	f(side, state)
}
