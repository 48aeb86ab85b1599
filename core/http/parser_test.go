package http

import (
	"errors"
	"testing"
)

func TestHeaderEnd(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"crlf", "GET / HTTP/1.1\r\nHost: x\r\n\r\n", 27},
		{"lf", "GET / HTTP/1.1\nHost: x\n\n", 24},
		{"partial", "GET / HTTP/1.1\r\nHost: x\r\n", -1},
		{"empty", "", -1},
		{"body after", "POST / HTTP/1.1\r\n\r\nabc", 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeaderEnd([]byte(tt.data)); got != tt.want {
				t.Errorf("HeaderEnd(%q) = %d, want %d", tt.data, got, tt.want)
			}
		})
	}
}

func TestParseRequest(t *testing.T) {
	raw := "GET /docs/index.html?lang=en&debug HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"connection: close\r\n" +
		"Cache-Control: no-cache\r\n" +
		"X-Trace-Id: abc123\r\n" +
		"\r\n"

	req, err := ParseRequest([]byte(raw))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	defer ReleaseRequest(req)

	if req.Method != "GET" {
		t.Errorf("Expected method GET, got %s", req.Method)
	}
	if req.Path != "/docs/index.html" {
		t.Errorf("Expected path /docs/index.html, got %s", req.Path)
	}
	if req.RawQuery != "lang=en&debug" {
		t.Errorf("Expected raw query, got %q", req.RawQuery)
	}
	if req.Query["lang"] != "en" {
		t.Errorf("Expected lang=en, got %q", req.Query["lang"])
	}
	if _, ok := req.Query["debug"]; !ok {
		t.Error("Expected debug query key")
	}
	if req.Proto != "HTTP/1.1" {
		t.Errorf("Expected HTTP/1.1, got %s", req.Proto)
	}
	if req.Host != "example.com" {
		t.Errorf("Expected host example.com, got %s", req.Host)
	}
	if req.Header("X-Trace-Id") != "abc123" {
		t.Errorf("Expected X-Trace-Id abc123, got %q", req.Header("X-Trace-Id"))
	}
	if req.KeepAlive() {
		t.Error("Expected keep-alive false for Connection: close")
	}
	if !req.NoCache() {
		t.Error("Expected NoCache for Cache-Control: no-cache")
	}
	if len(req.Body) != 0 {
		t.Errorf("GET must not carry a body, got %q", req.Body)
	}
}

func TestParseRequestDefaults(t *testing.T) {
	req, err := ParseRequest([]byte("GET / HTTP/1.0\n\n"))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	defer ReleaseRequest(req)

	if !req.KeepAlive() {
		t.Error("Expected keep-alive by default")
	}
	if req.NoCache() {
		t.Error("Expected caching allowed by default")
	}
}

func TestParseRequestPostBody(t *testing.T) {
	req, err := ParseRequest([]byte("POST /form HTTP/1.1\r\nContent-Type: text/plain\r\n\r\nname=value"))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	defer ReleaseRequest(req)

	if string(req.Body) != "name=value" {
		t.Errorf("Expected body name=value, got %q", req.Body)
	}
	if req.ContentType != "text/plain" {
		t.Errorf("Expected Content-Type text/plain, got %q", req.ContentType)
	}
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"no terminator", "GET / HTTP/1.1\r\nHost: x\r\n", ErrIncomplete},
		{"missing proto", "GET /\r\n\r\n", ErrInvalidRequest},
		{"empty line", "\r\n\r\n", ErrInvalidRequest},
		{"bad method", "G(T / HTTP/1.1\r\n\r\n", ErrInvalidRequest},
		{"relative path", "GET index.html HTTP/1.1\r\n\r\n", ErrInvalidRequest},
		{"bad proto", "GET / FTP/1.0\r\n\r\n", ErrInvalidRequest},
		{"leading space", " GET / HTTP/1.1\r\n\r\n", ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if req != nil {
				t.Error("Expected nil request on error")
			}
		})
	}
}

func TestParseRequestUnknownMethod(t *testing.T) {
	req, err := ParseRequest([]byte("BREW /pot HTTP/1.1\r\n\r\n"))
	if err != nil {
		t.Fatalf("Unknown but well-formed method must parse, got %v", err)
	}
	defer ReleaseRequest(req)
	if req.Method != "BREW" {
		t.Errorf("Expected BREW, got %s", req.Method)
	}
}

func TestParseRequestSkipsInvalidHeaderNames(t *testing.T) {
	req, err := ParseRequest([]byte("GET / HTTP/1.1\r\nBad Header: x\r\nnocolon\r\nAccept: */*\r\n\r\n"))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	defer ReleaseRequest(req)

	if len(req.ExtraHeaders) != 0 {
		t.Errorf("Expected invalid headers skipped, got %v", req.ExtraHeaders)
	}
	if req.Accept != "*/*" {
		t.Errorf("Expected Accept */*, got %q", req.Accept)
	}
}

func TestRequestReset(t *testing.T) {
	req, _ := ParseRequest([]byte("POST /a?x=1 HTTP/1.1\r\nX-A: b\r\n\r\nbody"))
	req.Reset()

	if req.Method != "" || req.Path != "" || req.RawQuery != "" {
		t.Error("Expected request line cleared")
	}
	if len(req.Query) != 0 || len(req.ExtraHeaders) != 0 || len(req.Body) != 0 {
		t.Error("Expected maps and body cleared")
	}
}

func BenchmarkParseRequest(b *testing.B) {
	data := []byte("GET /index.html HTTP/1.1\r\nHost: localhost\r\nAccept: */*\r\nConnection: keep-alive\r\n\r\n")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req, _ := ParseRequest(data)
		ReleaseRequest(req)
	}
}
