package http

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	ErrInvalidRequest = errors.New("invalid HTTP request")
	ErrIncomplete     = errors.New("incomplete HTTP request")
)

var (
	crlfcrlf = []byte("\r\n\r\n")
	lflf     = []byte("\n\n")
)

// HeaderEnd returns the index just past the blank line that ends the header
// block, or -1 when the terminator has not arrived yet.
func HeaderEnd(data []byte) int {
	end := -1
	if i := bytes.Index(data, crlfcrlf); i != -1 {
		end = i + len(crlfcrlf)
	}
	// Bare-LF clients
	if i := bytes.Index(data, lflf); i != -1 && (end == -1 || i+len(lflf) < end) {
		end = i + len(lflf)
	}
	return end
}

// ParseRequest parses one request from data. data must contain the full
// header block; whatever follows it becomes the body of a POST.
func ParseRequest(data []byte) (*Request, error) {
	end := HeaderEnd(data)
	if end == -1 {
		return nil, ErrIncomplete
	}
	head, rest := data[:end], data[end:]

	lineEnd := bytes.IndexByte(head, '\n')
	line := trimCR(head[:lineEnd])

	// METHOD SP PATH SP PROTO
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return nil, ErrInvalidRequest
	}
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 == -1 {
		return nil, ErrInvalidRequest
	}
	sp2 += sp1 + 1

	method := line[:sp1]
	target := line[sp1+1 : sp2]
	proto := line[sp2+1:]

	if !validMethod(method) || len(target) == 0 || target[0] != '/' || !bytes.HasPrefix(proto, []byte("HTTP/")) {
		return nil, ErrInvalidRequest
	}

	req := AcquireRequest()
	req.Method = string(method)
	req.Proto = string(proto)
	req.Path = string(target)
	if idx := strings.IndexByte(req.Path, '?'); idx != -1 {
		req.RawQuery = req.Path[idx+1:]
		req.Path = req.Path[:idx]
		parseQuery(req, req.RawQuery)
	}

	parseHeaders(req, head[lineEnd+1:])

	if req.Method == MethodPost && len(rest) > 0 {
		req.Body = append(req.Body[:0], rest...)
	}

	return req, nil
}

func validMethod(method []byte) bool {
	if len(method) == 0 {
		return false
	}
	for _, c := range method {
		if !httpguts.IsTokenRune(rune(c)) {
			return false
		}
	}
	return true
}

// parseHeaders parses HTTP headers. Lines with an invalid field name are
// skipped.
func parseHeaders(req *Request, data []byte) {
	for len(data) > 0 {
		lineEnd := bytes.IndexByte(data, '\n')
		if lineEnd == -1 {
			lineEnd = len(data)
		}

		line := trimCR(data[:lineEnd])
		if len(line) == 0 {
			break
		}

		colon := bytes.IndexByte(line, ':')
		if colon > 0 {
			key := string(bytes.TrimSpace(line[:colon]))
			value := string(bytes.TrimSpace(line[colon+1:]))
			if httpguts.ValidHeaderFieldName(key) {
				req.SetHeader(canonicalKey(key), value)
			}
		}

		if lineEnd == len(data) {
			break
		}
		data = data[lineEnd+1:]
	}
}

// parseQuery parses query parameters
func parseQuery(req *Request, query string) {
	if req.Query == nil {
		req.Query = make(map[string]string)
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		req.Query[k] = v
	}
}

// canonicalKey maps "content-type" to "Content-Type".
func canonicalKey(key string) string {
	b := []byte(key)
	upper := true
	for i, c := range b {
		switch {
		case upper && 'a' <= c && c <= 'z':
			b[i] = c - ('a' - 'A')
		case !upper && 'A' <= c && c <= 'Z':
			b[i] = c + ('a' - 'A')
		}
		upper = c == '-'
	}
	return string(b)
}

func trimCR(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}
	return line
}
