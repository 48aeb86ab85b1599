package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Resource errors. Each maps to a 404 with a descriptive body.
var (
	ErrNotFound    = errors.New("file not found")
	ErrIsDirectory = errors.New("path is a directory")
	ErrEmpty       = errors.New("file is empty")
	ErrPermission  = errors.New("permission denied")
)

// Handle is an open, non-empty regular file.
type Handle interface {
	// Size returns the file length in bytes.
	Size() int64
	// ReadAll fills dst, which must hold exactly Size bytes, from offset zero.
	ReadAll(dst []byte) error
	Close() error
}

// Accessor opens files for serving.
type Accessor interface {
	Open(name string) (Handle, error)
}

// OS is the operating system file accessor.
type OS struct{}

// Open opens name and classifies the failures the dispatcher cares about.
func (OS) Open(name string) (Handle, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, classify(name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, name)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmpty, name)
	}

	return &osHandle{file: f, size: info.Size()}, nil
}

func classify(name string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermission, name)
	default:
		return fmt.Errorf("open %s: %w", name, err)
	}
}

type osHandle struct {
	file *os.File
	size int64
}

func (h *osHandle) Size() int64 {
	return h.size
}

func (h *osHandle) ReadAll(dst []byte) error {
	if int64(len(dst)) != h.size {
		return fmt.Errorf("read %s: destination holds %d bytes, file has %d", h.file.Name(), len(dst), h.size)
	}
	// ReadAt restarts from offset zero no matter what was read before.
	n, err := h.file.ReadAt(dst, 0)
	if n != len(dst) {
		// The file shrank after Open.
		return fmt.Errorf("read %s: short read %d of %d: %w", h.file.Name(), n, len(dst), io.ErrUnexpectedEOF)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", h.file.Name(), err)
	}
	return nil
}

func (h *osHandle) Close() error {
	return h.file.Close()
}

// Resolve joins the document root with a request path. The request path is
// cleaned as an absolute path first, so ".." segments stop at the root.
func Resolve(root, requestPath string) string {
	clean := path.Clean("/" + requestPath)
	return filepath.Join(root, filepath.FromSlash(clean))
}
