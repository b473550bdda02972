package websockets

import "sync/atomic"

// ConnectionState is the lifecycle state of a connection.
type ConnectionState int32

const (
	StateConnecting ConnectionState = iota
	StateOpen
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// connState holds the state of a single connection. Transitions are
// monotonic: CONNECTING -> OPEN on a fully verified handshake, CONNECTING or
// OPEN -> CLOSED on failure or close. Nothing outside this package mutates it.
type connState struct {
	v int32
}

func (s *connState) load() ConnectionState {
	return ConnectionState(atomic.LoadInt32(&s.v))
}

// transition moves from exactly from to to. It reports false if another
// transition won, so a CLOSED connection can never reopen.
func (s *connState) transition(from, to ConnectionState) bool {
	if to <= from {
		return false
	}
	return atomic.CompareAndSwapInt32(&s.v, int32(from), int32(to))
}
