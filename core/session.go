package core

import "time"

// SessionState is the lifecycle stage of a connection.
type SessionState int

// Session states
const (
	StateAwaitingData SessionState = iota
	StateDispatching
	StateSending
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitingData:
		return "awaiting-data"
	case StateDispatching:
		return "dispatching"
	case StateSending:
		return "sending"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the per-connection state owned by the engine registry.
type Session struct {
	fd        int
	remote    string
	buf       []byte
	keepAlive bool
	state     SessionState
	requests  int
	opened    time.Time
}

func (s *Session) open(fd int, remote string, buf []byte) {
	s.fd = fd
	s.remote = remote
	s.buf = buf[:0]
	s.keepAlive = true
	s.state = StateAwaitingData
	s.requests = 0
	s.opened = time.Now()
}

// Reset implements pools.Resetter
func (s *Session) Reset() {
	s.fd = -1
	s.remote = ""
	s.buf = nil
	s.keepAlive = false
	s.state = StateClosed
	s.requests = 0
	s.opened = time.Time{}
}

// FD returns the connection descriptor.
func (s *Session) FD() int { return s.fd }

// Remote returns the peer address.
func (s *Session) Remote() string { return s.remote }

// State returns the lifecycle state.
func (s *Session) State() SessionState { return s.state }

// KeepAlive reports the keep-alive flag of the latest request.
func (s *Session) KeepAlive() bool { return s.keepAlive }

// Buffered returns the number of received bytes not yet parsed.
func (s *Session) Buffered() int { return len(s.buf) }
