package blobserve_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/blobserve"
	"github.com/meigma/blobserve/internal/testutil"
)

func fileURL(name string) string {
	return "/file?" + url.Values{"name": {name}}.Encode()
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestList_RegularFilesOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{
		"a.txt":          []byte("hello"),
		"empty.bin":      {},
		"b.dat":          bytes.Repeat([]byte{0xAB}, 4096),
		"nested/deep.go": []byte("package deep"),
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "emptydir"), 0o755))
	testutil.Symlink(t, filepath.Join(dir, "missing"), filepath.Join(dir, "broken"))
	testutil.Symlink(t, filepath.Join(dir, "a.txt"), filepath.Join(dir, "alias"))

	res := blobserve.New(dir)
	descs, err := res.List(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []blobserve.Descriptor{
		{Name: "a.txt", Size: 5},
		{Name: "empty.bin", Size: 0},
		{Name: "b.dat", Size: 4096},
	}, descs)
}

func TestList_EmptyDirectory(t *testing.T) {
	t.Parallel()

	res := blobserve.New(t.TempDir())
	descs, err := res.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, descs)

	rec := serve(t, res, http.MethodGet, "/list")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestList_InvalidName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"ok.txt": []byte("ok")})
	if err := os.WriteFile(filepath.Join(dir, "bad\xff.txt"), []byte("bad"), 0o644); err != nil {
		t.Skipf("filesystem rejects non-UTF-8 names: %v", err)
	}

	descs, err := blobserve.New(dir).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []blobserve.Descriptor{{Name: "ok.txt", Size: 2}}, descs)
}

func TestList_BaseUnavailable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"file.txt": []byte("x")})

	tests := []struct {
		name string
		root string
	}{
		{"missing", filepath.Join(dir, "does-not-exist")},
		{"not a directory", filepath.Join(dir, "file.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := blobserve.New(tt.root)
			_, err := res.List(context.Background())
			require.Error(t, err)

			rec := serve(t, res, http.MethodGet, "/list")
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.NotEqual(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestList_CanceledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"a": []byte("a")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := blobserve.New(dir).List(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHandleList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{
		"one.txt": []byte("1"),
		"two.txt": []byte("22"),
	})

	rec := serve(t, blobserve.New(dir), http.MethodGet, "/list")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.ElementsMatch(t, []map[string]any{
		{"name": "one.txt", "size": float64(1)},
		{"name": "two.txt", "size": float64(2)},
	}, got)
}

func TestHandleFile(t *testing.T) {
	t.Parallel()

	binary := make([]byte, 100_000)
	for i := range binary {
		binary[i] = byte(i * 7)
	}

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{
		"blob":          binary,
		"page.html":     []byte("<p>hi</p>"),
		"empty":         {},
		"sub/inner.dat": []byte("nested"),
	})
	res := blobserve.New(dir)

	tests := []struct {
		name        string
		file        string
		want        []byte
		contentType string
	}{
		{"binary", "blob", binary, "application/octet-stream"},
		{"html", "page.html", []byte("<p>hi</p>"), "text/html; charset=utf-8"},
		{"empty", "empty", nil, "application/octet-stream"},
		{"nested", "sub/inner.dat", []byte("nested"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(t, res, http.MethodGet, fileURL(tt.file))
			require.Equal(t, http.StatusOK, rec.Code)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
			assert.True(t, bytes.Equal(tt.want, rec.Body.Bytes()), "body mismatch for %s", tt.file)
		})
	}
}

func TestHandleFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"sub/x": []byte("x")})
	res := blobserve.New(dir)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing file", fileURL("does-not-exist"), http.StatusNotFound},
		{"missing name", "/file", http.StatusBadRequest},
		{"empty name", "/file?name=", http.StatusBadRequest},
		{"directory", fileURL("sub"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(t, res, http.MethodGet, tt.target)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleFile_ParentSegments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "base")
	testutil.WriteFiles(t, dir, map[string][]byte{
		"outside.txt": []byte("outside the base"),
		"base/in.txt": []byte("inside"),
	})

	rec := serve(t, blobserve.New(base), http.MethodGet, fileURL("../outside.txt"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "outside the base", rec.Body.String())
}

func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"a.txt": []byte("a"), "d/b": []byte("b")})
	res := blobserve.New(dir)
	assert.Equal(t, dir, res.Root())

	f, err := res.Open("a.txt")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = res.Open("")
	require.ErrorIs(t, err, blobserve.ErrMissingName)

	_, err = res.Open("d")
	require.ErrorIs(t, err, blobserve.ErrIsDirectory)

	_, err = res.Open("nope")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	res := blobserve.New(t.TempDir())

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"unknown path", http.MethodGet, "/", http.StatusNotFound},
		{"list subpath", http.MethodGet, "/list/extra", http.StatusNotFound},
		{"post list", http.MethodPost, "/list", http.StatusMethodNotAllowed},
		{"delete file", http.MethodDelete, fileURL("x"), http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := serve(t, res, tt.method, tt.target)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestWithFS(t *testing.T) {
	t.Parallel()

	fsys := testutil.NewMemFS(t, "/data", map[string][]byte{
		"x.json":   []byte(`{"k":1}`),
		"y.bin":    []byte("yyy"),
		"dir/z.go": []byte("package z"),
	})
	res := blobserve.New("/data", blobserve.WithFS(fsys))

	descs, err := res.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []blobserve.Descriptor{
		{Name: "x.json", Size: 7},
		{Name: "y.bin", Size: 3},
	}, descs)

	rec := serve(t, res, http.MethodGet, fileURL("dir/z.go"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "package z", rec.Body.String())
}

// blockingWriter holds the first Write until release is closed.
type blockingWriter struct {
	header  http.Header
	started chan struct{}
	release chan struct{}
	once    bool
}

func (w *blockingWriter) Header() http.Header { return w.header }
func (w *blockingWriter) WriteHeader(int)     {}

func (w *blockingWriter) Write(p []byte) (int, error) {
	if !w.once {
		w.once = true
		close(w.started)
		<-w.release
	}
	return len(p), nil
}

func TestWithMaxConcurrentReads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string][]byte{"f": []byte("content")})
	res := blobserve.New(dir, blobserve.WithMaxConcurrentReads(1))

	bw := &blockingWriter{
		header:  make(http.Header),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		res.ServeHTTP(bw, httptest.NewRequest(http.MethodGet, fileURL("f"), nil))
	}()
	<-bw.started

	// The only slot is held, so this request gives up when its context ends.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, fileURL("f"), nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	res.ServeHTTP(rec, req)
	assert.Empty(t, rec.Body.String())

	close(bw.release)
	<-done

	rec = serve(t, res, http.MethodGet, fileURL("f"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "content", rec.Body.String())
}
