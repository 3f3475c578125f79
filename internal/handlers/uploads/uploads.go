// Package uploads neutralizes user-uploaded media so it can never execute
// or render as code, independent of file extension or content. Uploads are
// plain bytes from disk: the serving path has no script-interpreter hook,
// risky extensions are forced to a plain-text content type, and every
// response is delivered as a download.
package uploads

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"example.com/mediagate/internal/handlers/staticfiles"
)

// Handler serves uploaded files through the static file server with header
// overrides applied on top.
type Handler struct {
	static     *staticfiles.Handler
	risky      map[string]struct{}
	forcedType string
}

// New creates the sanitizer. static must be rooted at the media tree; the
// upload prefix is an overlay on it. Extensions are matched without dot,
// case-insensitively.
func New(static *staticfiles.Handler, riskyExtensions []string, forcedContentType string) (*Handler, error) {
	if static == nil {
		return nil, fmt.Errorf("static handler cannot be nil")
	}
	if forcedContentType == "" {
		return nil, fmt.Errorf("forced content type cannot be empty")
	}
	risky := make(map[string]struct{}, len(riskyExtensions))
	for _, ext := range riskyExtensions {
		risky[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &Handler{static: static, risky: risky, forcedType: forcedContentType}, nil
}

// ServeHTTP serves the uploaded file named by residual (relative to the
// media root). The overrides run after content-type inference, so they win
// regardless of what the underlying server inferred from the extension.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request, residual string) {
	h.static.ServeHTTP(w, r, residual, h.sanitize)
}

// sanitize applies the response override policy for one file.
func (h *Handler) sanitize(header http.Header, path string) {
	if h.IsRisky(path) {
		header.Set("Content-Type", h.forcedType)
	}
	header.Set("Content-Disposition", "attachment")
	header.Set("X-Content-Type-Options", "nosniff")
}

// IsRisky reports whether the file's extension is in the risky set.
func (h *Handler) IsRisky(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return false
	}
	_, ok := h.risky[ext]
	return ok
}
