package staticfiles

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/mediagate/internal/logger"
)

// plainPager is a minimal ErrorPager for handler tests.
type plainPager struct{}

func (plainPager) ServeError(w http.ResponseWriter, r *http.Request, status int) {
	http.Error(w, http.StatusText(status), status)
}

func newTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	root := t.TempDir()
	h, err := New(root, nil, logger.NewDiscard(), plainPager{})
	require.NoError(t, err)
	return h, root
}

func get(h *Handler, method, residual string, header http.Header) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "/static/"+residual, nil)
	if header != nil {
		r.Header = header
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r, residual, nil)
	return w
}

func TestServeFileBytes(t *testing.T) {
	h, root := newTestHandler(t)
	content := []byte("body { color: red }\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.css"), content, 0644))

	w := get(h, http.MethodGet, "app.css", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())
	assert.Equal(t, "text/css; charset=utf-8", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("ETag"))
	assert.NotEmpty(t, w.Header().Get("Last-Modified"))
}

func TestServeNestedFile(t *testing.T) {
	h, root := newTestHandler(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "img", "icons"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "img", "icons", "x.png"), []byte{0x89, 'P', 'N', 'G'}, 0644))

	w := get(h, http.MethodGet, "img/icons/x.png", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestMissingFileIs404(t *testing.T) {
	h, _ := newTestHandler(t)
	w := get(h, http.MethodGet, "nope.txt", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDirectoryNeverListed(t *testing.T) {
	h, root := newTestHandler(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "secret.txt"), []byte("x"), 0644))

	for _, residual := range []string{"", "sub"} {
		w := get(h, http.MethodGet, residual, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "residual %q", residual)
		assert.NotContains(t, w.Body.String(), "secret.txt")
	}
}

func TestTraversalBlocked(t *testing.T) {
	h, root := newTestHandler(t)
	// A sibling of the root that must stay invisible.
	outside := filepath.Join(filepath.Dir(root), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0644))

	for _, residual := range []string{
		"../outside.txt",
		"a/../../outside.txt",
		"..",
	} {
		w := get(h, http.MethodGet, residual, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "residual %q", residual)
		assert.NotContains(t, w.Body.String(), "secret")
	}
}

func TestResolveContainment(t *testing.T) {
	h, root := newTestHandler(t)

	path, err := h.Resolve("a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a", "b.txt"), path)

	path, err = h.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, root, path)

	_, err = h.Resolve("../escape")
	assert.ErrorIs(t, err, ErrTraversal)
}

func TestSymlinkWithinRootFollowed(t *testing.T) {
	h, root := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "real.txt"), []byte("linked"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))

	w := get(h, http.MethodGet, "link.txt", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "linked", w.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	h, root := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		w := get(h, method, "a.txt", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Equal(t, "GET, HEAD", w.Header().Get("Allow"))
	}
}

func TestHeadOmitsBody(t *testing.T) {
	h, root := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))

	w := get(h, http.MethodHead, "a.txt", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("Content-Length"))
	assert.Zero(t, w.Body.Len())
}

func TestConditionalRequests(t *testing.T) {
	h, root := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))

	first := get(h, http.MethodGet, "a.txt", nil)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	lastModified := first.Header().Get("Last-Modified")
	require.NotEmpty(t, etag)
	require.NotEmpty(t, lastModified)

	t.Run("matching etag yields 304", func(t *testing.T) {
		hdr := http.Header{"If-None-Match": []string{etag}}
		w := get(h, http.MethodGet, "a.txt", hdr)
		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Zero(t, w.Body.Len())
	})

	t.Run("weak etag form matches", func(t *testing.T) {
		hdr := http.Header{"If-None-Match": []string{"W/" + etag}}
		w := get(h, http.MethodGet, "a.txt", hdr)
		assert.Equal(t, http.StatusNotModified, w.Code)
	})

	t.Run("stale etag yields 200", func(t *testing.T) {
		hdr := http.Header{"If-None-Match": []string{`"deadbeef-0"`}}
		w := get(h, http.MethodGet, "a.txt", hdr)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("if-modified-since honored", func(t *testing.T) {
		hdr := http.Header{"If-Modified-Since": []string{lastModified}}
		w := get(h, http.MethodGet, "a.txt", hdr)
		assert.Equal(t, http.StatusNotModified, w.Code)
	})

	t.Run("etag precedence over if-modified-since", func(t *testing.T) {
		// Stale ETag means full response even though the date matches.
		hdr := http.Header{
			"If-None-Match":     []string{`"deadbeef-0"`},
			"If-Modified-Since": []string{lastModified},
		}
		w := get(h, http.MethodGet, "a.txt", hdr)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHeaderOverridesWin(t *testing.T) {
	h, root := newTestHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "page.html"), []byte("<html></html>"), 0644))

	r := httptest.NewRequest(http.MethodGet, "/static/page.html", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r, "page.html", func(header http.Header, path string) {
		header.Set("Content-Type", "text/plain")
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
}
