//go:build linux || darwin

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

// WaitWritable blocks until fd can accept more bytes or timeout elapses.
// It reports false on timeout. An error or hang-up condition counts as
// writable so the next write surfaces the real error.
func WaitWritable(fd int, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}

	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		n, err := unix.Poll(fds, int(remaining.Milliseconds()))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return false, unix.EBADF
		}
		return true, nil
	}
}
