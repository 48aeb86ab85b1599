package http

import (
	"sync"

	"golang.org/x/net/http/httpguts"
)

// Request is a parsed HTTP/1.x request. Strings are copies, so a Request
// outlives the read buffer it was parsed from.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Proto    string

	// Predefined common header fields
	Host          string
	Connection    string
	CacheControl  string
	ContentType   string
	ContentLength string
	UserAgent     string
	Accept        string

	// Extra headers (allocated only when needed)
	ExtraHeaders map[string]string

	// Query parameters
	Query map[string]string

	// Body holds whatever followed the header block in the buffer, POST only.
	Body []byte
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{}
	},
}

// AcquireRequest returns an empty Request from the pool.
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// ReleaseRequest resets req and returns it to the pool.
func ReleaseRequest(req *Request) {
	if req == nil {
		return
	}
	req.Reset()
	requestPool.Put(req)
}

// Reset resets the request for reuse (memory not freed, just reset)
func (r *Request) Reset() {
	r.Method = ""
	r.Path = ""
	r.RawQuery = ""
	r.Proto = ""
	r.Host = ""
	r.Connection = ""
	r.CacheControl = ""
	r.ContentType = ""
	r.ContentLength = ""
	r.UserAgent = ""
	r.Accept = ""

	for k := range r.ExtraHeaders {
		delete(r.ExtraHeaders, k)
	}
	for k := range r.Query {
		delete(r.Query, k)
	}

	r.Body = r.Body[:0]
}

// SetHeader sets a header (prioritizes predefined fields)
func (r *Request) SetHeader(key, value string) {
	switch key {
	case HeaderHost:
		r.Host = value
	case HeaderConnection:
		r.Connection = value
	case HeaderCacheControl:
		r.CacheControl = value
	case HeaderContentType:
		r.ContentType = value
	case HeaderContentLength:
		r.ContentLength = value
	case HeaderUserAgent:
		r.UserAgent = value
	case HeaderAccept:
		r.Accept = value
	default:
		if r.ExtraHeaders == nil {
			r.ExtraHeaders = make(map[string]string)
		}
		r.ExtraHeaders[key] = value
	}
}

// Header returns a request header value.
func (r *Request) Header(key string) string {
	switch key {
	case HeaderHost:
		return r.Host
	case HeaderConnection:
		return r.Connection
	case HeaderCacheControl:
		return r.CacheControl
	case HeaderContentType:
		return r.ContentType
	case HeaderContentLength:
		return r.ContentLength
	case HeaderUserAgent:
		return r.UserAgent
	case HeaderAccept:
		return r.Accept
	}
	return r.ExtraHeaders[key]
}

// KeepAlive reports whether the connection stays open after the response.
// Connections are persistent unless the client sends "Connection: close".
func (r *Request) KeepAlive() bool {
	if r.Connection == "" {
		return true
	}
	return !httpguts.HeaderValuesContainsToken([]string{r.Connection}, "close")
}

// NoCache reports whether the client asked to bypass the server cache.
func (r *Request) NoCache() bool {
	if r.CacheControl == "" {
		return false
	}
	return httpguts.HeaderValuesContainsToken([]string{r.CacheControl}, "no-cache")
}
