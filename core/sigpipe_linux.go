package core

// Linux has no per-socket SIGPIPE option; the Go runtime turns SIGPIPE on
// sockets into EPIPE.
func setNoSigpipe(int) {}
