package core

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/fast-static/core/http"
	"github.com/searchktools/fast-static/core/observability"
	"github.com/searchktools/fast-static/core/poller"
	"github.com/searchktools/fast-static/core/pools"
)

// Options configures an Engine.
type Options struct {
	StageBufferSize int
	MaxRequestSize  int
	Sender          SenderOptions
}

// DefaultOptions returns the stock engine settings.
func DefaultOptions() Options {
	return Options{
		StageBufferSize: DefaultStageBufferSize,
		MaxRequestSize:  DefaultMaxRequestSize,
		Sender: SenderOptions{
			FrameBudget:  DefaultFrameBudget,
			MaxRetries:   DefaultMaxRetries,
			WriteTimeout: DefaultWriteTimeout,
		},
	}
}

// Engine multiplexes the listening socket and every client connection on a
// single goroutine. Sessions live in a registry keyed by descriptor and are
// only touched from the event loop.
type Engine struct {
	opts       Options
	logger     *slog.Logger
	dispatcher *Dispatcher

	poller    poller.Poller
	pollerMu  sync.Mutex
	transport Transport
	sender    *Sender
	listenFD  int

	sessions    map[int]*Session
	stage       []byte
	bytePool    *pools.BytePool
	sessionPool *pools.ObjectPool[*Session]

	counters counters
	monitor  *observability.Monitor
	shutdown atomic.Bool
}

// NewEngine creates an engine that answers requests through dispatcher.
func NewEngine(opts Options, dispatcher *Dispatcher, logger *slog.Logger) *Engine {
	if opts.StageBufferSize <= 0 {
		opts.StageBufferSize = DefaultStageBufferSize
	}
	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = DefaultMaxRequestSize
	}
	e := &Engine{
		opts:       opts,
		logger:     logger,
		dispatcher: dispatcher,
		listenFD:   -1,
		sessions:   make(map[int]*Session, 1024),
		stage:      make([]byte, opts.StageBufferSize),
		monitor:    observability.NewMonitor(),
		bytePool:   pools.NewBytePool(),
	}
	e.sessionPool = pools.NewObjectPool(func() *Session {
		return &Session{fd: -1, state: StateClosed}
	})
	return e
}

// Run listens on addr and serves until Shutdown is called or the readiness
// wait fails.
func (e *Engine) Run(addr string) error {
	laddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", addr, err)
	}

	ln, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer ln.Close()

	// File duplicates the descriptor; the engine owns the copy.
	lnFile, err := ln.File()
	if err != nil {
		return fmt.Errorf("listener descriptor: %w", err)
	}
	defer lnFile.Close()
	lfd := int(lnFile.Fd())

	if err := unix.SetNonblock(lfd, true); err != nil {
		return fmt.Errorf("set nonblocking: %w", err)
	}

	p, err := poller.NewPoller()
	if err != nil {
		return fmt.Errorf("create poller: %w", err)
	}
	defer p.Close()

	e.logger.Info("listening", "addr", ln.Addr().String())
	return e.Serve(p, NewFDTransport(), lfd)
}

// Serve runs the event loop over an already listening, non-blocking
// descriptor.
func (e *Engine) Serve(p poller.Poller, t Transport, listenFD int) error {
	if err := e.attach(p, t, listenFD); err != nil {
		return err
	}
	defer e.closeAll()

	for {
		if e.shutdown.Load() {
			e.logger.Info("shutting down", "sessions", len(e.sessions))
			return nil
		}

		events, err := e.poller.Wait(-1)
		if err != nil {
			e.logger.Error("readiness wait failed", "error", err)
			return fmt.Errorf("poller wait: %w", err)
		}

		// Ascending descriptor order keeps dispatch deterministic.
		slices.SortFunc(events, func(a, b poller.Event) int { return a.Fd - b.Fd })
		for _, ev := range events {
			if e.shutdown.Load() {
				break
			}
			if ev.Fd == e.listenFD {
				e.acceptConnections()
				continue
			}
			e.handleRead(ev.Fd)
		}
	}
}

func (e *Engine) attach(p poller.Poller, t Transport, listenFD int) error {
	e.pollerMu.Lock()
	e.poller = p
	e.pollerMu.Unlock()

	e.transport = t
	e.listenFD = listenFD
	e.sender = NewSender(t, e, e.opts.Sender, e.logger)

	if err := p.Add(listenFD); err != nil {
		return fmt.Errorf("watch listener: %w", err)
	}
	return nil
}

// acceptConnections drains the accept queue.
func (e *Engine) acceptConnections() {
	for {
		fd, remote, err := e.transport.Accept(e.listenFD)
		if err != nil {
			if !errors.Is(err, ErrWouldBlock) {
				e.logger.Warn("accept failed", "error", err)
			}
			return
		}

		if err := e.poller.Add(fd); err != nil {
			e.logger.Warn("watch connection failed", "fd", fd, "error", err)
			e.transport.Close(fd)
			continue
		}

		sess := e.sessionPool.Get()
		sess.open(fd, remote, e.bytePool.Get(e.opts.StageBufferSize))
		e.sessions[fd] = sess
		e.counters.accepted++

		e.logger.Info("new connection", "remote", remote, "fd", fd)
	}
}

// handleRead consumes one readiness notification for fd.
func (e *Engine) handleRead(fd int) {
	sess, ok := e.sessions[fd]
	if !ok {
		return
	}

	n, err := e.transport.Read(fd, e.stage)
	if err != nil {
		if errors.Is(err, ErrWouldBlock) {
			return
		}
		e.logger.Warn("receive failed", "fd", fd, "error", err)
		e.CloseSession(fd)
		return
	}
	if n == 0 {
		e.logger.Info("connection closed by peer", "remote", sess.remote, "fd", fd)
		e.CloseSession(fd)
		return
	}

	start := time.Now()
	sess.buf = append(sess.buf, e.stage[:n]...)

	if http.HeaderEnd(sess.buf) < 0 {
		if len(sess.buf) > e.opts.MaxRequestSize {
			e.logger.Warn("request header too large", "fd", fd, "bytes", len(sess.buf))
			sess.keepAlive = false
			e.respond(sess, http.ErrorResponse(http.StatusRequestHeaderFieldsTooLarge,
				"Request header exceeds the size limit", false), start)
		}
		return
	}

	e.serveRequest(sess, start)
}

func (e *Engine) serveRequest(sess *Session, start time.Time) {
	sess.state = StateDispatching
	sess.requests++
	e.counters.requests++

	req, err := http.ParseRequest(sess.buf)
	// Bytes past the header block are dropped along with it.
	sess.buf = sess.buf[:0]

	var resp *http.Response
	if err != nil {
		e.logger.Info("malformed request", "fd", sess.fd, "error", err)
		sess.keepAlive = false
		resp = http.ErrorResponse(http.StatusBadRequest, "Malformed request line", false)
	} else {
		sess.keepAlive = req.KeepAlive()
		resp = e.dispatcher.Dispatch(req)
		e.logger.Info("request", "method", req.Method, "path", req.Path, "status", resp.StatusCode, "fd", sess.fd)
		http.ReleaseRequest(req)
	}

	e.respond(sess, resp, start)
}

// respond sends resp and records its latency from start.
func (e *Engine) respond(sess *Session, resp *http.Response, start time.Time) {
	e.counters.record(resp.StatusCode)
	err := e.sender.SendResponse(sess, resp)
	if err != nil {
		e.logger.Debug("response aborted", "status", resp.Summary(), "error", err)
	}
	e.monitor.RecordRequest(resp.Summary(), time.Since(start), err != nil || resp.StatusCode >= 500)
}

// IsRegistered reports whether fd belongs to an open session.
func (e *Engine) IsRegistered(fd int) bool {
	_, ok := e.sessions[fd]
	return ok
}

// CloseSession deregisters and closes fd. Unknown descriptors are ignored.
func (e *Engine) CloseSession(fd int) {
	sess, ok := e.sessions[fd]
	if !ok {
		return
	}
	delete(e.sessions, fd)

	if err := e.poller.Remove(fd); err != nil {
		e.logger.Debug("unwatch failed", "fd", fd, "error", err)
	}
	if err := e.transport.Close(fd); err != nil {
		e.logger.Debug("close failed", "fd", fd, "error", err)
	}

	e.bytePool.Put(sess.buf)
	e.counters.closed++
	e.logger.Debug("session closed", "fd", fd, "requests", sess.requests)

	e.sessionPool.Put(sess)
}

// Session returns the open session for fd.
func (e *Engine) Session(fd int) (*Session, bool) {
	sess, ok := e.sessions[fd]
	return sess, ok
}

// ActiveSessions returns the number of open sessions.
func (e *Engine) ActiveSessions() int {
	return len(e.sessions)
}

// Shutdown asks the event loop to stop. It is safe to call from any
// goroutine.
func (e *Engine) Shutdown() {
	e.shutdown.Store(true)

	e.pollerMu.Lock()
	p := e.poller
	e.pollerMu.Unlock()
	if p != nil {
		if err := p.Wake(); err != nil && !errors.Is(err, poller.ErrClosed) {
			e.logger.Warn("wake failed", "error", err)
		}
	}
}

func (e *Engine) closeAll() {
	for fd := range e.sessions {
		e.CloseSession(fd)
	}
	if e.listenFD >= 0 {
		e.poller.Remove(e.listenFD)
	}
}
