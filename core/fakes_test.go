package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/searchktools/fast-static/core/cache"
	"github.com/searchktools/fast-static/core/files"
	"github.com/searchktools/fast-static/core/poller"
)

const (
	testListenFD = 3
	testRoot     = "/srv"
)

var errNoEvents = errors.New("no more scripted events")

type fakePoller struct {
	watched map[int]bool
	batches [][]poller.Event
	onDrain func()
	woken   int
}

func newFakePoller() *fakePoller {
	return &fakePoller{watched: make(map[int]bool)}
}

func (p *fakePoller) Add(fd int) error {
	p.watched[fd] = true
	return nil
}

func (p *fakePoller) Remove(fd int) error {
	delete(p.watched, fd)
	return nil
}

func (p *fakePoller) Wait(int) ([]poller.Event, error) {
	if len(p.batches) > 0 {
		batch := p.batches[0]
		p.batches = p.batches[1:]
		return batch, nil
	}
	if p.onDrain != nil {
		p.onDrain()
		return nil, nil
	}
	return nil, errNoEvents
}

func (p *fakePoller) Wake() error {
	p.woken++
	return nil
}

func (p *fakePoller) Close() error { return nil }

// fakeTransport records writes per descriptor and serves scripted reads.
type fakeTransport struct {
	accepts    []int
	inbound    map[int][][]byte
	eof        map[int]bool
	out        map[int]*bytes.Buffer
	writes     map[int]int
	writeLimit int
	blocked    map[int]bool
	writeErr   map[int]error
	writable   bool
	waits      int
	closed     map[int]bool
	order      []int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound:  make(map[int][][]byte),
		eof:      make(map[int]bool),
		out:      make(map[int]*bytes.Buffer),
		writes:   make(map[int]int),
		blocked:  make(map[int]bool),
		writeErr: make(map[int]error),
		writable: true,
		closed:   make(map[int]bool),
	}
}

func (t *fakeTransport) feed(fd int, data string) {
	t.inbound[fd] = append(t.inbound[fd], []byte(data))
}

func (t *fakeTransport) output(fd int) []byte {
	if b, ok := t.out[fd]; ok {
		return b.Bytes()
	}
	return nil
}

func (t *fakeTransport) Accept(int) (int, string, error) {
	if len(t.accepts) == 0 {
		return -1, "", ErrWouldBlock
	}
	fd := t.accepts[0]
	t.accepts = t.accepts[1:]
	return fd, fmt.Sprintf("127.0.0.1:%d", 40000+fd), nil
}

func (t *fakeTransport) Read(fd int, p []byte) (int, error) {
	chunks := t.inbound[fd]
	if len(chunks) == 0 {
		if t.eof[fd] {
			return 0, nil
		}
		return 0, ErrWouldBlock
	}
	n := copy(p, chunks[0])
	if n < len(chunks[0]) {
		chunks[0] = chunks[0][n:]
	} else {
		t.inbound[fd] = chunks[1:]
	}
	return n, nil
}

func (t *fakeTransport) Write(fd int, p []byte) (int, error) {
	t.writes[fd]++
	if err := t.writeErr[fd]; err != nil {
		return 0, err
	}
	if t.blocked[fd] {
		return 0, ErrWouldBlock
	}
	n := len(p)
	if t.writeLimit > 0 && n > t.writeLimit {
		n = t.writeLimit
	}
	if t.out[fd] == nil {
		t.out[fd] = new(bytes.Buffer)
	}
	t.out[fd].Write(p[:n])
	t.order = append(t.order, fd)
	return n, nil
}

func (t *fakeTransport) WaitWritable(int, time.Duration) (bool, error) {
	t.waits++
	return t.writable, nil
}

func (t *fakeTransport) Close(fd int) error {
	t.closed[fd] = true
	return nil
}

// fakeFS serves in-memory files keyed by their resolved path.
type fakeFS struct {
	content map[string]string
	errs    map[string]error
	opens   map[string]int
	reads   map[string]int
}

func newFakeFS(content map[string]string) *fakeFS {
	return &fakeFS{
		content: content,
		errs:    make(map[string]error),
		opens:   make(map[string]int),
		reads:   make(map[string]int),
	}
}

func (f *fakeFS) Open(name string) (files.Handle, error) {
	f.opens[name]++
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	data, ok := f.content[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", files.ErrNotFound, name)
	}
	return &fakeHandle{fs: f, name: name, data: data}, nil
}

type fakeHandle struct {
	fs   *fakeFS
	name string
	data string
}

func (h *fakeHandle) Size() int64 { return int64(len(h.data)) }

func (h *fakeHandle) ReadAll(dst []byte) error {
	h.fs.reads[h.name]++
	if len(dst) != len(h.data) {
		return fmt.Errorf("short destination: %d", len(dst))
	}
	copy(dst, h.data)
	return nil
}

func (h *fakeHandle) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	engine    *Engine
	transport *fakeTransport
	poller    *fakePoller
	fs        *fakeFS
	cache     *cache.FileCache
}

func newTestServer(t *testing.T, content map[string]string, cacheSize int, opts Options) *testServer {
	t.Helper()
	logger := discardLogger()

	var c *cache.FileCache
	if cacheSize > 0 {
		c = cache.New(cacheSize, logger)
	}
	fs := newFakeFS(content)
	e := NewEngine(opts, NewDispatcher(testRoot, "index.html", c, fs, logger), logger)

	tr := newFakeTransport()
	p := newFakePoller()
	if err := e.attach(p, tr, testListenFD); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return &testServer{engine: e, transport: tr, poller: p, fs: fs, cache: c}
}

func (s *testServer) connect(fds ...int) {
	s.transport.accepts = append(s.transport.accepts, fds...)
	s.engine.acceptConnections()
}

func (s *testServer) send(fd int, raw string) {
	s.transport.feed(fd, raw)
	for len(s.transport.inbound[fd]) > 0 {
		s.engine.handleRead(fd)
	}
}
