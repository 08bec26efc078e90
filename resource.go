package blobserve

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sync/semaphore"

	"github.com/meigma/blobserve/internal/fileops"
	"github.com/meigma/blobserve/internal/pathutil"
)

const defaultContentType = "application/octet-stream"

// Resource serves the regular files of one base directory.
//
// The base directory is fixed at construction. Resource holds no other
// state and is safe for concurrent use.
type Resource struct {
	root     string
	fs       afero.Fs
	logger   *slog.Logger
	maxReads int
	reads    *semaphore.Weighted
	mux      *http.ServeMux
}

// New creates a Resource bound to root.
func New(root string, opts ...Option) *Resource {
	r := &Resource{root: root}
	for _, opt := range opts {
		opt(r)
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.maxReads > 0 {
		r.reads = semaphore.NewWeighted(int64(r.maxReads))
	}

	r.mux = http.NewServeMux()
	r.mux.HandleFunc("GET /list", r.handleList)
	r.mux.HandleFunc("GET /file", r.handleFile)
	return r
}

// Root returns the base directory.
func (r *Resource) Root() string {
	return r.root
}

// ServeHTTP dispatches to the /list and /file routes.
func (r *Resource) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// List returns a descriptor for every regular file directly inside the base
// directory, in enumeration order.
//
// A bad entry is skipped rather than failing the listing. List fails only
// when the base directory itself cannot be read.
func (r *Resource) List(ctx context.Context) ([]Descriptor, error) {
	dir, err := r.fs.Open(r.root)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.root, err)
	}
	defer dir.Close()

	info, err := dir.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", r.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("list %s: not a directory", r.root)
	}

	names, err := dir.Readdirnames(-1)
	if err != nil {
		if len(names) == 0 {
			return nil, fmt.Errorf("read %s: %w", r.root, err)
		}
		r.log().Debug("directory read ended early", "dir", r.root, "read", len(names), "error", err)
	}

	descs := make([]Descriptor, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		desc, ok := r.describe(name)
		if !ok {
			continue
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// describe builds the descriptor for a single entry. It reports false when
// the entry should be left out of the listing.
func (r *Resource) describe(name string) (Descriptor, bool) {
	info, err := r.lstat(pathutil.Join(r.root, name))
	if err != nil {
		r.log().Debug("skipped unreadable entry", "name", name, "error", err)
		return Descriptor{}, false
	}
	if !info.Mode().IsRegular() {
		return Descriptor{}, false
	}
	entryName, ok := pathutil.EntryName(name)
	if !ok {
		r.log().Debug("skipped entry with invalid name", "name", name)
		return Descriptor{}, false
	}
	var size uint64
	if n := info.Size(); n > 0 {
		size = uint64(n)
	}
	return Descriptor{Name: entryName, Size: size}, true
}

// lstat inspects path without following symlinks when the filesystem allows.
func (r *Resource) lstat(path string) (fs.FileInfo, error) {
	if l, ok := r.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return r.fs.Stat(path)
}

// Open opens the file at name relative to the base directory.
//
// The name is joined without cleaning, so ".." segments and absolute names
// are honored as given. Open returns ErrMissingName for an empty name and
// ErrIsDirectory when the path names a directory.
func (r *Resource) Open(name string) (afero.File, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	path := pathutil.Join(r.root, name)
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", name, ErrIsDirectory)
	}
	return f, nil
}

func (r *Resource) handleList(w http.ResponseWriter, req *http.Request) {
	descs, err := r.List(req.Context())
	if err != nil {
		r.log().Warn("list failed", "dir", r.root, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(descs)
	if err != nil {
		r.log().Error("encode listing", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		r.log().Debug("write listing", "error", err)
	}
}

func (r *Resource) handleFile(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	name := req.URL.Query().Get("name")
	if name == "" {
		status := statusCode(ErrMissingName)
		http.Error(w, http.StatusText(status), status)
		return
	}

	if r.reads != nil {
		if err := r.reads.Acquire(ctx, 1); err != nil {
			r.log().Debug("gave up waiting for read slot", "name", name, "error", err)
			return
		}
		defer r.reads.Release(1)
	}

	f, err := r.Open(name)
	if err != nil {
		status := statusCode(err)
		r.log().Warn("open failed", "name", name, "status", status, "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = defaultContentType
	}
	w.Header().Set("Content-Type", contentType)

	buf, release := fileops.GetBuffer()
	defer release()
	n, err := fileops.CopyWithContext(ctx, w, f, buf)
	if err != nil {
		r.log().Warn("stream interrupted", "name", name, "bytes", n, "error", err)
		return
	}
	r.log().Debug("served file", "name", name, "bytes", n)
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Resource) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}
