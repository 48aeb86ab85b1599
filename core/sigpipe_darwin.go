package core

import "golang.org/x/sys/unix"

func setNoSigpipe(fd int) {
	unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}
