// Package poller wraps the platform readiness primitive (epoll on Linux,
// kqueue on Darwin) behind one interface.
//
// Registered descriptors are watched for readability. The set of descriptors
// is unbounded; Wait grows its event buffer when a batch fills it.
package poller

import "errors"

// ErrClosed is returned by operations on a closed poller.
var ErrClosed = errors.New("poller closed")

// Event describes one ready descriptor.
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	// Hangup is set when the peer closed its side or the descriptor errored.
	Hangup bool
}

// Poller is the I/O multiplexing interface
type Poller interface {
	Add(fd int) error
	Remove(fd int) error
	// Wait blocks for at most timeout milliseconds (-1 blocks until an event
	// or Wake). A wake-up alone returns an empty batch.
	Wait(timeout int) ([]Event, error)
	// Wake interrupts a blocked Wait from another goroutine.
	Wake() error
	Close() error
}

const initialEvents = 128
