package core

import (
	"bytes"
	"errors"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/searchktools/fast-static/core/http"
)

func TestSendResponseSingleFrame(t *testing.T) {
	s := newTestServer(t, nil, 0, DefaultOptions())
	s.connect(10)
	sess, _ := s.engine.Session(10)

	resp := http.NewResponse(http.StatusOK, "text/plain", []byte("hello"), true)
	if err := s.engine.sender.SendResponse(sess, resp); err != nil {
		t.Fatalf("SendResponse: %v", err)
	}
	if s.transport.writes[10] != 1 {
		t.Errorf("Expected one write for a small response, got %d", s.transport.writes[10])
	}
	want := append(resp.Header(), resp.Body...)
	if !bytes.Equal(s.transport.output(10), want) {
		t.Errorf("Unexpected wire bytes %q", s.transport.output(10))
	}
}

func TestSendResponseChunksWithShortWrites(t *testing.T) {
	s := newTestServer(t, nil, 0, DefaultOptions())
	s.transport.writeLimit = 1000
	s.connect(10)
	sess, _ := s.engine.Session(10)

	body := []byte(strings.Repeat("0123456789abcdef", 1500))
	resp := http.NewResponse(http.StatusOK, "application/octet-stream", body, true)
	if err := s.engine.sender.SendResponse(sess, resp); err != nil {
		t.Fatalf("SendResponse: %v", err)
	}

	want := append(resp.Header(), body...)
	if !bytes.Equal(s.transport.output(10), want) {
		t.Fatalf("Wire bytes differ: got %d bytes, want %d", len(s.transport.output(10)), len(want))
	}
	if !s.engine.IsRegistered(10) {
		t.Error("Keep-alive session must stay open")
	}
	if got := s.engine.sender.Stats().BytesSent; got != uint64(len(want)) {
		t.Errorf("Expected %d bytes sent, got %d", len(want), got)
	}
}

func TestSendWithRetryExhausted(t *testing.T) {
	s := newTestServer(t, nil, 0, DefaultOptions())
	s.transport.blocked[10] = true
	s.connect(10)

	_, err := s.engine.sender.SendWithRetry(10, []byte("data"))
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Expected ErrRetriesExhausted, got %v", err)
	}
	if got := s.transport.writes[10]; got != DefaultMaxRetries {
		t.Errorf("Expected %d write attempts, got %d", DefaultMaxRetries, got)
	}
	if s.engine.IsRegistered(10) || !s.transport.closed[10] {
		t.Error("Expected session closed after exhausting retries")
	}

	_, err = s.engine.sender.SendWithRetry(10, []byte("more"))
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
	if got := s.transport.writes[10]; got != DefaultMaxRetries {
		t.Errorf("Expected no further writes, got %d", got)
	}
}

func TestSendResponseAbortsAfterFailure(t *testing.T) {
	s := newTestServer(t, nil, 0, DefaultOptions())
	s.transport.blocked[10] = true
	s.connect(10)
	sess, _ := s.engine.Session(10)

	body := []byte(strings.Repeat("z", 3*DefaultFrameBudget))
	err := s.engine.sender.SendResponse(sess, http.NewResponse(http.StatusOK, "text/plain", body, true))
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Expected ErrRetriesExhausted, got %v", err)
	}
	if got := s.transport.writes[10]; got != DefaultMaxRetries {
		t.Errorf("Expected the remaining chunks skipped, got %d writes", got)
	}
}

func TestSendWithRetryTimeout(t *testing.T) {
	s := newTestServer(t, nil, 0, DefaultOptions())
	s.transport.blocked[10] = true
	s.transport.writable = false
	s.connect(10)

	_, err := s.engine.sender.SendWithRetry(10, []byte("data"))
	if !errors.Is(err, ErrSendTimeout) {
		t.Fatalf("Expected ErrSendTimeout, got %v", err)
	}
	if s.transport.writes[10] != 1 || s.transport.waits != 1 {
		t.Errorf("Expected 1 write and 1 wait, got %d and %d", s.transport.writes[10], s.transport.waits)
	}
	if s.engine.IsRegistered(10) {
		t.Error("Expected session closed after timeout")
	}
	if s.engine.sender.Stats().Timeouts != 1 {
		t.Error("Expected timeout counted")
	}
}

func TestSendWithRetryHardError(t *testing.T) {
	s := newTestServer(t, nil, 0, DefaultOptions())
	s.transport.writeErr[10] = syscall.EPIPE
	s.connect(10)

	_, err := s.engine.sender.SendWithRetry(10, []byte("data"))
	if !errors.Is(err, syscall.EPIPE) {
		t.Fatalf("Expected EPIPE, got %v", err)
	}
	if s.engine.IsRegistered(10) {
		t.Error("Expected session closed after write error")
	}
}

func TestSendWithRetryRecovers(t *testing.T) {
	s := newTestServer(t, nil, 0, DefaultOptions())
	s.connect(10)
	s.transport.blocked[10] = true

	tr := &unblockingTransport{fakeTransport: s.transport, after: 2}
	s.engine.sender.transport = tr

	n, err := s.engine.sender.SendWithRetry(10, []byte("data"))
	if err != nil || n != 4 {
		t.Fatalf("Expected 4 bytes, got %d %v", n, err)
	}
	if s.engine.sender.Stats().Retries != 2 {
		t.Errorf("Expected 2 retries, got %d", s.engine.sender.Stats().Retries)
	}
}

// unblockingTransport clears the blocked flag after a number of writable waits.
type unblockingTransport struct {
	*fakeTransport
	after int
}

func (u *unblockingTransport) WaitWritable(fd int, timeout time.Duration) (bool, error) {
	ok, err := u.fakeTransport.WaitWritable(fd, timeout)
	if u.fakeTransport.waits >= u.after {
		u.fakeTransport.blocked[fd] = false
	}
	return ok, err
}
