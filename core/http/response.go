package http

import (
	"fmt"
	"html"
	"sort"
	"strconv"
)

type headerField struct {
	key   string
	value string
}

// Response is a status, extra headers and a body. The default header set,
// Content-Length and the connection headers are added by Header.
type Response struct {
	StatusCode int
	Body       []byte
	KeepAlive  bool

	contentType string
	headers     []headerField
}

// NewResponse creates a response with the given content type and body.
func NewResponse(code int, contentType string, body []byte, keepAlive bool) *Response {
	return &Response{
		StatusCode:  code,
		Body:        body,
		KeepAlive:   keepAlive,
		contentType: contentType,
	}
}

const errorPageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>%[1]d %[2]s</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        h1 { color: #444; }
        p { color: #666; }
    </style>
</head>
<body>
    <h1>%[1]d %[2]s</h1>
    <p>%[3]s</p>
</body>
</html>`

// ErrorResponse renders the HTML error page for code with a detail message.
func ErrorResponse(code int, detail string, keepAlive bool) *Response {
	body := fmt.Sprintf(errorPageTemplate, code, StatusText(code), html.EscapeString(detail))
	return NewResponse(code, "text/html", []byte(body), keepAlive)
}

// Redirect creates an empty-bodied redirect to location.
func Redirect(code int, location string, keepAlive bool) *Response {
	r := NewResponse(code, "text/html", nil, keepAlive)
	r.SetHeader(HeaderLocation, location)
	return r
}

// SetHeader adds or replaces a response header.
func (r *Response) SetHeader(key, value string) {
	if key == HeaderContentType {
		r.contentType = value
		return
	}
	for i := range r.headers {
		if r.headers[i].key == key {
			r.headers[i].value = value
			return
		}
	}
	r.headers = append(r.headers, headerField{key, value})
}

// ContentType returns the Content-Type header value.
func (r *Response) ContentType() string {
	return r.contentType
}

// Header renders the status line and header block, including the blank line.
func (r *Response) Header() []byte {
	return r.AppendHeader(make([]byte, 0, 256))
}

// AppendHeader appends the rendered header block to dst.
func (r *Response) AppendHeader(dst []byte) []byte {
	fields := make([]headerField, 0, len(defaultHeaders)+len(r.headers)+4)
	fields = append(fields, defaultHeaders[:]...)
	fields = append(fields, r.headers...)
	fields = append(fields,
		headerField{HeaderContentLength, strconv.Itoa(len(r.Body))},
		headerField{HeaderContentType, r.contentType},
	)
	if r.KeepAlive {
		fields = append(fields,
			headerField{HeaderConnection, "keep-alive"},
			headerField{HeaderKeepAlive, KeepAliveParams},
		)
	} else {
		fields = append(fields, headerField{HeaderConnection, "close"})
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].key < fields[j].key })

	// Status line
	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(r.StatusCode), 10)
	dst = append(dst, ' ')
	dst = append(dst, StatusText(r.StatusCode)...)
	dst = append(dst, "\r\n"...)

	for i, f := range fields {
		// Later fields override defaults with the same key.
		if i+1 < len(fields) && fields[i+1].key == f.key {
			continue
		}
		dst = append(dst, f.key...)
		dst = append(dst, ": "...)
		dst = append(dst, f.value...)
		dst = append(dst, "\r\n"...)
	}
	return append(dst, "\r\n"...)
}

// Summary returns "<code> <reason>" for logging.
func (r *Response) Summary() string {
	return strconv.Itoa(r.StatusCode) + " " + StatusText(r.StatusCode)
}
