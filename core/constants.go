package core

import (
	"errors"
	"time"
)

// Defaults
const (
	DefaultStageBufferSize = 1024
	DefaultFrameBudget     = 8096
	DefaultMaxRetries      = 5
	DefaultWriteTimeout    = time.Second
	DefaultMaxRequestSize  = 64 << 10
	DefaultIndex           = "index.html"
	DefaultRoot            = "resources"
)

// Transport errors. None of them reaches the peer as an HTTP response.
var (
	ErrWouldBlock       = errors.New("operation would block")
	ErrSendTimeout      = errors.New("timed out waiting for socket to become writable")
	ErrRetriesExhausted = errors.New("send retry budget exhausted")
	ErrSessionClosed    = errors.New("session closed")
)
