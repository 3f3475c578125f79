package staticfiles

import (
	"mime"
	"path/filepath"
	"strings"
)

const defaultMimeType = "application/octet-stream"

// builtinMimeTypes covers the extensions the gateway is expected to serve
// without relying on the host's mime.types. Custom entries passed to
// NewMimeResolver override these.
var builtinMimeTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".csv":   "text/csv; charset=utf-8",
	".eot":   "application/vnd.ms-fontobject",
	".gif":   "image/gif",
	".gz":    "application/gzip",
	".htm":   "text/html; charset=utf-8",
	".html":  "text/html; charset=utf-8",
	".ico":   "image/vnd.microsoft.icon",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "text/javascript; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".otf":   "font/otf",
	".pdf":   "application/pdf",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".tar":   "application/x-tar",
	".tiff":  "image/tiff",
	".ttf":   "font/ttf",
	".txt":   "text/plain; charset=utf-8",
	".wasm":  "application/wasm",
	".webm":  "video/webm",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".xml":   "application/xml; charset=utf-8",
	".zip":   "application/zip",
}

// MimeResolver maps file paths to content types: custom entries first, then
// the built-in table, then the platform registry, then octet-stream.
type MimeResolver struct {
	custom map[string]string
}

// NewMimeResolver builds a resolver. Keys of custom may be given with or
// without the leading dot; they take precedence over every other source.
func NewMimeResolver(custom map[string]string) *MimeResolver {
	normalized := make(map[string]string, len(custom))
	for ext, typ := range custom {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[strings.ToLower(ext)] = typ
	}
	return &MimeResolver{custom: normalized}
}

// TypeFor returns the content type for path.
func (m *MimeResolver) TypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return defaultMimeType
	}
	if typ, ok := m.custom[ext]; ok {
		return typ
	}
	if typ, ok := builtinMimeTypes[ext]; ok {
		return typ
	}
	if typ := mime.TypeByExtension(ext); typ != "" {
		return typ
	}
	return defaultMimeType
}
