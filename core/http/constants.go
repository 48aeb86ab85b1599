package http

// HTTP header constants
const (
	HeaderAccept         = "Accept"
	HeaderAcceptLanguage = "Accept-Language"
	HeaderAllow          = "Allow"
	HeaderCacheControl   = "Cache-Control"
	HeaderConnection     = "Connection"
	HeaderContentLength  = "Content-Length"
	HeaderContentType    = "Content-Type"
	HeaderHost           = "Host"
	HeaderKeepAlive      = "Keep-Alive"
	HeaderLocation       = "Location"
	HeaderServer         = "Server"
	HeaderUserAgent      = "User-Agent"
)

// Request methods
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodDelete  = "DELETE"
	MethodOptions = "OPTIONS"
	MethodPatch   = "PATCH"
	MethodTrace   = "TRACE"
	MethodConnect = "CONNECT"
)

// ServerName is sent in the Server header.
const ServerName = "fast-static/1.0"

// KeepAliveParams is sent in the Keep-Alive header of persistent responses.
const KeepAliveParams = "timeout=5, max=200"

// defaultHeaders are present on every response.
var defaultHeaders = [...]headerField{
	{HeaderServer, ServerName},
	{HeaderHost, "localhost"},
	{HeaderAccept, "*/*"},
	{HeaderAcceptLanguage, "en-US,en;q=0.5"},
}
