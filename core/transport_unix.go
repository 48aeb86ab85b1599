//go:build linux || darwin

package core

import (
	"net"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/fast-static/core/poller"
)

type fdTransport struct{}

// NewFDTransport returns the socket transport used in production.
func NewFDTransport() Transport {
	return fdTransport{}
}

func (fdTransport) Accept(listenFD int) (int, string, error) {
	for {
		nfd, sa, err := unix.Accept(listenFD)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return -1, "", ErrWouldBlock
		}
		if err != nil {
			return -1, "", err
		}

		unix.CloseOnExec(nfd)
		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			return -1, "", err
		}

		// TCP_NODELAY: Disable Nagle's algorithm
		unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		setNoSigpipe(nfd)

		return nfd, sockaddrString(sa), nil
	}
}

func (fdTransport) Read(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
		return 0, ErrWouldBlock
	}
	if n < 0 {
		n = 0
	}
	return n, err
}

func (fdTransport) Write(fd int, p []byte) (int, error) {
	n, err := unix.Write(fd, p)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
		return 0, ErrWouldBlock
	}
	if n < 0 {
		n = 0
	}
	return n, err
}

func (fdTransport) WaitWritable(fd int, timeout time.Duration) (bool, error) {
	return poller.WaitWritable(fd, timeout)
}

func (fdTransport) Close(fd int) error {
	return unix.Close(fd)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(net.IP(a.Addr[:]).String(), strconv.Itoa(a.Port))
	default:
		return "unknown"
	}
}
