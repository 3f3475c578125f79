// Package server assembles the gateway: the path classifier, the static,
// upload and backend handlers, the middleware chain and the listener
// lifecycle. All routing state is built once in New and read-only
// afterwards; concurrent requests share nothing mutable.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"example.com/mediagate/internal/config"
	"example.com/mediagate/internal/handlers/backend"
	"example.com/mediagate/internal/handlers/staticfiles"
	"example.com/mediagate/internal/handlers/uploads"
	"example.com/mediagate/internal/logger"
	"example.com/mediagate/internal/metrics"
	"example.com/mediagate/internal/router"
)

// Gateway dispatches each request to exactly one destination handler based
// on the classifier's decision.
type Gateway struct {
	classifier *router.Classifier
	media      *staticfiles.Handler
	static     *staticfiles.Handler
	errordocs  *staticfiles.Handler
	uploads    *uploads.Handler
	forwarder  *backend.Forwarder
	errors     *ErrorPages
	log        *logger.Logger

	// uploadSubdir locates the upload overlay inside the media tree, e.g.
	// "uploaded" for upload_prefix "/media/uploaded".
	uploadSubdir string
}

// NewGateway wires the destination handlers from a validated configuration.
func NewGateway(cfg *config.Config, lg *logger.Logger, m *metrics.Metrics) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if lg == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	errPages := NewErrorPages(cfg.Server.ServerName, cfg.Routes.ErrorDocument, lg)
	mime := staticfiles.NewMimeResolver(nil)

	media, err := staticfiles.New(cfg.Routes.MediaRoot, mime, lg, errPages)
	if err != nil {
		return nil, fmt.Errorf("media handler: %w", err)
	}
	static, err := staticfiles.New(cfg.Routes.StaticRoot, mime, lg, errPages)
	if err != nil {
		return nil, fmt.Errorf("static handler: %w", err)
	}
	errordocs, err := staticfiles.New(cfg.Routes.ErrorDocsRoot, mime, lg, errPages)
	if err != nil {
		return nil, fmt.Errorf("errordocs handler: %w", err)
	}
	uploadHandler, err := uploads.New(media, cfg.Uploads.RiskyExtensions, cfg.Uploads.ForcedContentType)
	if err != nil {
		return nil, fmt.Errorf("upload handler: %w", err)
	}

	var onFailure backend.FailureFunc
	if m != nil {
		onFailure = func(reason string) {
			m.BackendFailures.WithLabelValues(reason).Inc()
		}
	}
	forwarder, err := backend.New(cfg.Backend, cfg.Routes.SiteRoot, lg, errPages, onFailure)
	if err != nil {
		return nil, fmt.Errorf("backend forwarder: %w", err)
	}

	return &Gateway{
		classifier:   router.New(cfg.Routes),
		media:        media,
		static:       static,
		errordocs:    errordocs,
		uploads:      uploadHandler,
		forwarder:    forwarder,
		errors:       errPages,
		log:          lg,
		uploadSubdir: strings.TrimPrefix(cfg.Routes.UploadPrefix, cfg.Routes.MediaPrefix+"/"),
	}, nil
}

// Classify exposes the classifier decision for a path. Useful to callers
// that label by destination kind before dispatch.
func (g *Gateway) Classify(path string) router.Decision {
	return g.classifier.Classify(path)
}

// ServeHTTP routes one request through exactly one destination. Each
// request traverses a single path; a failure inside the chosen destination
// is answered there, never by re-classification.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	decision := g.classifier.Classify(r.URL.Path)

	switch decision.Kind {
	case router.KindUpload:
		residual := g.uploadSubdir
		if decision.Residual != "" {
			residual += "/" + decision.Residual
		}
		g.uploads.ServeHTTP(w, r, residual)
	case router.KindMedia:
		g.media.ServeHTTP(w, r, decision.Residual, nil)
	case router.KindStatic:
		g.static.ServeHTTP(w, r, decision.Residual, nil)
	case router.KindErrorDocs:
		g.errordocs.ServeHTTP(w, r, decision.Residual, nil)
	default:
		g.forwarder.ServeHTTP(w, r, decision.Residual)
	}
}
