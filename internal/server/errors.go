package server

import (
	"fmt"
	"html"
	"net/http"
	"os"

	"example.com/mediagate/internal/logger"
)

// defaultPages maps status codes to the built-in error page text.
var defaultPages = map[int]struct {
	Title   string
	Message string
}{
	http.StatusBadRequest: {
		Title:   "400 Bad Request",
		Message: "The server cannot process the request.",
	},
	http.StatusForbidden: {
		Title:   "403 Forbidden",
		Message: "You do not have permission to access this resource.",
	},
	http.StatusNotFound: {
		Title:   "404 Not Found",
		Message: "The requested resource was not found on this server.",
	},
	http.StatusMethodNotAllowed: {
		Title:   "405 Method Not Allowed",
		Message: "The method is not allowed for the requested resource.",
	},
	http.StatusInternalServerError: {
		Title:   "500 Internal Server Error",
		Message: "The server encountered an internal error and was unable to complete your request.",
	},
	http.StatusBadGateway: {
		Title:   "502 Bad Gateway",
		Message: "The application backend could not be reached.",
	},
	http.StatusGatewayTimeout: {
		Title:   "504 Gateway Timeout",
		Message: "The application backend did not respond in time.",
	},
}

// ErrorPages renders error responses. For the 500 class it serves the
// configured custom error document when one exists, falling back to the
// built-in page; everything else always gets the built-in page.
type ErrorPages struct {
	serverName    string
	errorDocument string
	log           *logger.Logger
}

// NewErrorPages creates an ErrorPages. errorDocument may be empty; when set
// it must point at an existing file (validated at config load).
func NewErrorPages(serverName, errorDocument string, lg *logger.Logger) *ErrorPages {
	return &ErrorPages{serverName: serverName, errorDocument: errorDocument, log: lg}
}

// ServeError writes the error response for status. Once called, the request
// is answered; there is no fallback to another destination.
func (p *ErrorPages) ServeError(w http.ResponseWriter, r *http.Request, status int) {
	if status >= 500 && p.errorDocument != "" {
		if body, err := os.ReadFile(p.errorDocument); err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(status)
			if r.Method != http.MethodHead {
				w.Write(body)
			}
			return
		} else if p.log != nil {
			p.log.Error("error document unreadable, using built-in page", logger.LogFields{
				"path":  p.errorDocument,
				"error": err.Error(),
			})
		}
	}

	page, ok := defaultPages[status]
	if !ok {
		page.Title = fmt.Sprintf("%d %s", status, http.StatusText(status))
		page.Message = http.StatusText(status)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
<hr>
<address>%s</address>
</body>
</html>
`, html.EscapeString(page.Title), html.EscapeString(page.Title),
		html.EscapeString(page.Message), html.EscapeString(p.serverName))
}
