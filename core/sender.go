package core

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/searchktools/fast-static/core/http"
)

// Registry is the session table a Sender consults and closes through.
type Registry interface {
	IsRegistered(fd int) bool
	CloseSession(fd int)
}

// SenderOptions bounds frame size and retry behaviour.
type SenderOptions struct {
	FrameBudget  int
	MaxRetries   int
	WriteTimeout time.Duration
}

// SendStats holds sender counters.
type SendStats struct {
	BytesSent uint64 `json:"bytes_sent"`
	Writes    uint64 `json:"writes"`
	Retries   uint64 `json:"retries"`
	Timeouts  uint64 `json:"timeouts"`
	Failures  uint64 `json:"failures"`
}

// Sender writes responses to non-blocking sockets. A write that would block
// waits for writability up to WriteTimeout; the session is closed once the
// retry budget is spent. It runs on the event loop goroutine.
type Sender struct {
	transport Transport
	registry  Registry
	opts      SenderOptions
	logger    *slog.Logger
	stats     SendStats
}

// NewSender creates a sender. Zero options fall back to the defaults.
func NewSender(t Transport, r Registry, opts SenderOptions, logger *slog.Logger) *Sender {
	if opts.FrameBudget <= 0 {
		opts.FrameBudget = DefaultFrameBudget
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Sender{
		transport: t,
		registry:  r,
		opts:      opts,
		logger:    logger,
	}
}

// SendWithRetry writes data with a single successful write call and returns
// the number of bytes accepted, which may be fewer than len(data).
func (s *Sender) SendWithRetry(fd int, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if !s.registry.IsRegistered(fd) {
		return 0, ErrSessionClosed
	}

	for attempt := 1; ; attempt++ {
		s.stats.Writes++
		n, err := s.transport.Write(fd, data)
		if err == nil && n > 0 {
			s.stats.BytesSent += uint64(n)
			return n, nil
		}
		if err != nil && !errors.Is(err, ErrWouldBlock) {
			s.logger.Warn("send failed", "fd", fd, "error", err)
			s.fail(fd)
			return 0, fmt.Errorf("write fd %d: %w", fd, err)
		}

		if attempt >= s.opts.MaxRetries {
			s.logger.Warn("max send retries reached", "fd", fd, "attempts", attempt)
			s.fail(fd)
			return 0, ErrRetriesExhausted
		}

		s.stats.Retries++
		ready, err := s.transport.WaitWritable(fd, s.opts.WriteTimeout)
		if err != nil {
			s.logger.Warn("writable wait failed", "fd", fd, "error", err)
			s.fail(fd)
			return 0, fmt.Errorf("wait writable fd %d: %w", fd, err)
		}
		if !ready {
			s.stats.Timeouts++
			s.logger.Warn("send retry timeout", "fd", fd, "timeout", s.opts.WriteTimeout)
			s.fail(fd)
			return 0, ErrSendTimeout
		}
		if !s.registry.IsRegistered(fd) {
			return 0, ErrSessionClosed
		}
	}
}

// SendResponse transmits the header block and body of resp. Small responses
// go out as one frame, larger ones as the header followed by body chunks of
// at most FrameBudget bytes. Non-keep-alive sessions are closed afterwards.
func (s *Sender) SendResponse(sess *Session, resp *http.Response) error {
	fd := sess.fd
	sess.state = StateSending

	head := resp.Header()
	var err error
	if len(head)+len(resp.Body) <= s.opts.FrameBudget {
		err = s.sendAll(fd, append(head, resp.Body...))
	} else {
		err = s.sendAll(fd, head)
		if err == nil {
			err = s.sendAll(fd, resp.Body)
		}
	}
	if err != nil {
		return err
	}

	if !resp.KeepAlive {
		s.registry.CloseSession(fd)
		return nil
	}
	sess.state = StateAwaitingData
	return nil
}

func (s *Sender) sendAll(fd int, data []byte) error {
	for offset := 0; offset < len(data); {
		end := min(offset+s.opts.FrameBudget, len(data))
		n, err := s.SendWithRetry(fd, data[offset:end])
		if err != nil {
			return err
		}
		offset += n
	}
	return nil
}

func (s *Sender) fail(fd int) {
	s.stats.Failures++
	if s.registry.IsRegistered(fd) {
		s.registry.CloseSession(fd)
	}
}

// Stats returns sender counters.
func (s *Sender) Stats() SendStats {
	return s.stats
}
