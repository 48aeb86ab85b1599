package core

import (
	"errors"
	"log/slog"

	"github.com/searchktools/fast-static/core/cache"
	"github.com/searchktools/fast-static/core/files"
	"github.com/searchktools/fast-static/core/http"
)

// Dispatcher maps parsed requests to responses backed by the document root
// and the file cache.
type Dispatcher struct {
	root   string
	index  string
	cache  *cache.FileCache
	files  files.Accessor
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher serving root. A nil cache disables caching.
func NewDispatcher(root, index string, c *cache.FileCache, fs files.Accessor, logger *slog.Logger) *Dispatcher {
	if index == "" {
		index = DefaultIndex
	}
	if fs == nil {
		fs = files.OS{}
	}
	return &Dispatcher{
		root:   root,
		index:  index,
		cache:  c,
		files:  fs,
		logger: logger,
	}
}

// Dispatch produces the response for req.
func (d *Dispatcher) Dispatch(req *http.Request) *http.Response {
	keepAlive := req.KeepAlive()

	if req.Method != http.MethodGet {
		resp := http.ErrorResponse(http.StatusMethodNotAllowed, "Method "+req.Method+" is not supported", keepAlive)
		resp.SetHeader(http.HeaderAllow, http.MethodGet)
		return resp
	}

	if req.Path == "/" {
		return http.Redirect(http.StatusPermanentRedirect, "/"+d.index, keepAlive)
	}

	return d.ServeFile(req.Path, !req.NoCache(), keepAlive)
}

// ServeFile responds with the contents of requestPath under the root. With
// useCache set, cached bodies are served without touching the filesystem
// and files smaller than the cache capacity are inserted on a miss.
func (d *Dispatcher) ServeFile(requestPath string, useCache, keepAlive bool) *http.Response {
	contentType := files.ContentType(requestPath)
	useCache = useCache && d.cache != nil

	if useCache {
		if v, ok := d.cache.Get(requestPath); ok {
			d.logger.Debug("cache hit", "path", requestPath, "bytes", v.Length)
			return http.NewResponse(http.StatusOK, contentType, d.cache.Bytes(v), keepAlive)
		}
	}

	h, err := d.files.Open(files.Resolve(d.root, requestPath))
	if err != nil {
		return d.resourceError(requestPath, err, keepAlive)
	}
	defer h.Close()

	size := h.Size()
	if useCache && size < int64(d.cache.Capacity()) {
		v, err := d.cache.SetFunc(requestPath, int(size), h.ReadAll)
		switch {
		case err == nil:
			return http.NewResponse(http.StatusOK, contentType, d.cache.Bytes(v), keepAlive)
		case !errors.Is(err, cache.ErrUncacheable):
			d.logger.Error("read failed", "path", requestPath, "error", err)
			return http.ErrorResponse(http.StatusInternalServerError, "Failed to read "+requestPath, keepAlive)
		}
	}

	body := make([]byte, size)
	if err := h.ReadAll(body); err != nil {
		d.logger.Error("read failed", "path", requestPath, "error", err)
		return http.ErrorResponse(http.StatusInternalServerError, "Failed to read "+requestPath, keepAlive)
	}
	return http.NewResponse(http.StatusOK, contentType, body, keepAlive)
}

func (d *Dispatcher) resourceError(requestPath string, err error, keepAlive bool) *http.Response {
	switch {
	case errors.Is(err, files.ErrNotFound),
		errors.Is(err, files.ErrIsDirectory),
		errors.Is(err, files.ErrEmpty),
		errors.Is(err, files.ErrPermission):
		d.logger.Info("resource unavailable", "path", requestPath, "error", err)
		return http.ErrorResponse(http.StatusNotFound, resourceReason(err)+": "+requestPath, keepAlive)
	default:
		d.logger.Error("open failed", "path", requestPath, "error", err)
		return http.ErrorResponse(http.StatusInternalServerError, "Failed to open "+requestPath, keepAlive)
	}
}

func resourceReason(err error) string {
	for _, target := range []error{files.ErrNotFound, files.ErrIsDirectory, files.ErrEmpty, files.ErrPermission} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
