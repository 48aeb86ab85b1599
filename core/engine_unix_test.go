//go:build linux || darwin

package core

import (
	"io"
	"net"
	nethttp "net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/fast-static/core/cache"
	"github.com/searchktools/fast-static/core/files"
	"github.com/searchktools/fast-static/core/poller"
)

func TestEngineOverTCP(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte(indexHTML), 0o644); err != nil {
		t.Fatal(err)
	}

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	lnFile, err := ln.File()
	if err != nil {
		t.Fatal(err)
	}
	defer lnFile.Close()
	lfd := int(lnFile.Fd())
	if err := unix.SetNonblock(lfd, true); err != nil {
		t.Fatal(err)
	}

	p, err := poller.NewPoller()
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	logger := discardLogger()
	e := NewEngine(DefaultOptions(), NewDispatcher(root, "index.html", cache.New(1<<20, logger), files.OS{}, logger), logger)

	served := make(chan error, 1)
	go func() { served <- e.Serve(p, NewFDTransport(), lfd) }()

	client := &nethttp.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*nethttp.Request, []*nethttp.Request) error {
			return nethttp.ErrUseLastResponse
		},
	}
	base := "http://" + ln.Addr().String()

	for _, tt := range []struct {
		path string
		code int
	}{
		{"/index.html", 200},
		{"/index.html", 200},
		{"/", 308},
		{"/missing.html", 404},
	} {
		resp, err := client.Get(base + tt.path)
		if err != nil {
			t.Fatalf("GET %s: %v", tt.path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != tt.code {
			t.Errorf("GET %s: expected %d, got %d", tt.path, tt.code, resp.StatusCode)
		}
		if tt.code == 200 && string(body) != indexHTML {
			t.Errorf("GET %s: unexpected body %q", tt.path, body)
		}
	}

	e.Shutdown()
	select {
	case err := <-served:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}

	st := e.Stats()
	if st.Requests.Total != 4 {
		t.Errorf("Expected 4 requests, got %d", st.Requests.Total)
	}
	if st.Cache == nil || st.Cache.Hits == 0 {
		t.Errorf("Expected cache hits, got %+v", st.Cache)
	}
	if st.Connections.Active != 0 {
		t.Errorf("Expected all sessions closed, got %d", st.Connections.Active)
	}
}
