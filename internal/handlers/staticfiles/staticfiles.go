// Package staticfiles serves classified static requests (media, assets,
// error documents) directly from a configured filesystem root. Resolution
// never escapes the root, symlinks beneath the root are followed, and a
// directory target never produces a listing.
package staticfiles

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"example.com/mediagate/internal/logger"
)

// ErrTraversal is returned when a residual path resolves outside the root.
var ErrTraversal = errors.New("path escapes document root")

// ErrorPager renders the gateway's error responses. The server package
// provides the implementation; handlers depend only on this interface.
type ErrorPager interface {
	ServeError(w http.ResponseWriter, r *http.Request, status int)
}

// Handler serves files beneath a single root directory.
type Handler struct {
	root   string
	mime   *MimeResolver
	log    *logger.Logger
	errors ErrorPager
}

// New creates a Handler rooted at root. The root must be an absolute,
// existing directory (validated at config load).
func New(root string, mime *MimeResolver, lg *logger.Logger, errors ErrorPager) (*Handler, error) {
	if lg == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if errors == nil {
		return nil, fmt.Errorf("error pager cannot be nil")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root %q: %w", root, err)
	}
	if mime == nil {
		mime = NewMimeResolver(nil)
	}
	return &Handler{root: abs, mime: mime, log: lg, errors: errors}, nil
}

// Root returns the handler's document root.
func (h *Handler) Root() string { return h.root }

// Resolve joins residual onto the root and canonicalizes the result,
// guaranteeing containment. It returns ErrTraversal when the canonical path
// escapes the root.
func (h *Handler) Resolve(residual string) (string, error) {
	target := filepath.Join(h.root, filepath.FromSlash(residual))
	canonical := filepath.Clean(target)
	if canonical != h.root && !strings.HasPrefix(canonical, h.root+string(filepath.Separator)) {
		return "", ErrTraversal
	}
	return canonical, nil
}

// ServeHTTP serves the file named by residual. Overrides, when non-nil, is
// applied to the response headers after content-type inference and before
// the status is written; the upload sanitizer uses it to win over inferred
// types.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request, residual string, overrides func(http.Header, string)) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		h.errors.ServeError(w, r, http.StatusMethodNotAllowed)
		return
	}

	path, err := h.Resolve(residual)
	if err != nil {
		// Traversal is answered like a missing file so the response leaks
		// nothing about the tree above the root.
		h.log.Warn("static path escaped root", logger.LogFields{
			"residual": residual,
			"root":     h.root,
		})
		h.errors.ServeError(w, r, http.StatusNotFound)
		return
	}

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			h.errors.ServeError(w, r, http.StatusNotFound)
			return
		}
		if os.IsPermission(err) {
			h.errors.ServeError(w, r, http.StatusForbidden)
			return
		}
		h.log.Error("stat failed", logger.LogFields{"path": path, "error": err.Error()})
		h.errors.ServeError(w, r, http.StatusInternalServerError)
		return
	}
	if fi.IsDir() {
		// Listings are never produced; a directory is indistinguishable
		// from a missing file.
		h.errors.ServeError(w, r, http.StatusNotFound)
		return
	}

	h.serveFile(w, r, path, fi, overrides)
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, path string, fi os.FileInfo, overrides func(http.Header, string)) {
	etag := strongETag(fi)
	lastModified := fi.ModTime().UTC()

	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", lastModified.Format(http.TimeFormat))
	w.Header().Set("Content-Type", h.mime.TypeFor(path))
	if overrides != nil {
		overrides(w.Header(), path)
	}

	if notModified(r, fi, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", fi.Size()))

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			h.errors.ServeError(w, r, http.StatusForbidden)
			return
		}
		h.log.Error("open failed", logger.LogFields{"path": path, "error": err.Error()})
		h.errors.ServeError(w, r, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		// Headers are gone; nothing to do beyond recording the failure.
		h.log.Error("write failed mid-file", logger.LogFields{"path": path, "error": err.Error()})
	}
}

// strongETag derives a strong validator from file size and mtime.
func strongETag(fi os.FileInfo) string {
	return fmt.Sprintf("\"%x-%x\"", fi.Size(), fi.ModTime().UnixNano())
}

// notModified evaluates If-None-Match and If-Modified-Since. If-None-Match
// takes precedence: when present, If-Modified-Since is not consulted.
func notModified(r *http.Request, fi os.FileInfo, etag string) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		if inm == "*" {
			return true
		}
		serverTag := strings.Trim(etag, "\"")
		for _, candidate := range strings.Split(inm, ",") {
			candidate = strings.TrimSpace(candidate)
			candidate = strings.TrimPrefix(candidate, "W/")
			if strings.Trim(candidate, "\"") == serverTag {
				return true
			}
		}
		return false
	}

	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		t, err := http.ParseTime(ims)
		if err != nil {
			return false
		}
		return !fi.ModTime().Truncate(time.Second).After(t.Truncate(time.Second))
	}
	return false
}
