package core

import "time"

// Transport performs non-blocking I/O on descriptors. Implementations report
// EAGAIN-style conditions as ErrWouldBlock.
type Transport interface {
	// Accept returns a new non-blocking connection and its peer address.
	Accept(listenFD int) (fd int, remote string, err error)
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	// WaitWritable reports false when timeout elapsed first.
	WaitWritable(fd int, timeout time.Duration) (bool, error)
	Close(fd int) error
}
