// Package backend forwards application-bound requests to the backend
// process over a local Unix-domain socket. The socket carries ordinary
// HTTP: the forwarder is a reverse proxy whose transport dials the socket
// instead of the network.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"example.com/mediagate/internal/config"
	"example.com/mediagate/internal/logger"
)

// ErrorPager renders the gateway's error responses; implemented by the
// server package.
type ErrorPager interface {
	ServeError(w http.ResponseWriter, r *http.Request, status int)
}

// FailureFunc is invoked once per failed forward with a short reason label
// ("dial", "timeout", "proxy"). Used for metrics.
type FailureFunc func(reason string)

// Forwarder relays unclassified requests to the backend application. The
// underlying transport pools connections to the socket; request handling
// itself shares no mutable state.
type Forwarder struct {
	proxy     *httputil.ReverseProxy
	siteRoot  string
	log       *logger.Logger
	errors    ErrorPager
	onFailure FailureFunc
}

// New creates a Forwarder from the backend configuration. siteRoot, when
// non-empty, is reported to the backend via X-Forwarded-Prefix so it can
// reconstruct externally-visible URLs.
func New(cfg *config.BackendConfig, siteRoot string, lg *logger.Logger, errors ErrorPager, onFailure FailureFunc) (*Forwarder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend configuration cannot be nil")
	}
	if lg == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if errors == nil {
		return nil, fmt.Errorf("error pager cannot be nil")
	}
	if onFailure == nil {
		onFailure = func(string) {}
	}

	address := cfg.Address
	dialTimeout := cfg.DialTimeout.Std()
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			return d.DialContext(ctx, "unix", address)
		},
		MaxIdleConns:          *cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   *cfg.MaxIdleConns,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: cfg.ResponseTimeout.Std(),
	}

	f := &Forwarder{
		siteRoot:  siteRoot,
		log:       lg,
		errors:    errors,
		onFailure: onFailure,
	}
	f.proxy = &httputil.ReverseProxy{
		Director:     f.direct,
		Transport:    transport,
		ErrorHandler: f.handleError,
	}
	return f, nil
}

// ServeHTTP forwards the request. residual is the rewritten application
// path (site root stripped, no leading slash); the query string on the
// request URL is preserved byte-for-byte. Forwarding is terminal: failures
// here never fall back to another destination.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request, residual string) {
	outbound := r.Clone(r.Context())
	outbound.URL.Path = "/" + residual
	f.proxy.ServeHTTP(w, outbound)
}

// direct finalizes the outbound request. The URL host is a placeholder;
// the transport dials the configured socket regardless.
func (f *Forwarder) direct(req *http.Request) {
	req.URL.Scheme = "http"
	req.URL.Host = "backend"

	// Some transports strip Authorization on the way through; this gateway
	// guarantees the backend sees the credential the client supplied.
	if auth := req.Header.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	if f.siteRoot != "" {
		req.Header.Set("X-Forwarded-Prefix", f.siteRoot)
	}
	if clientIP := realIP(req); clientIP != "" {
		req.Header.Set("X-Real-IP", clientIP)
		req.Header.Set("X-Forwarded-For", clientIP)
	}
	// Suppress the default Go user agent when the client sent none.
	if _, ok := req.Header["User-Agent"]; !ok {
		req.Header.Set("User-Agent", "")
	}
}

func (f *Forwarder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, reason := http.StatusBadGateway, "proxy"
	switch {
	case isTimeout(err):
		status, reason = http.StatusGatewayTimeout, "timeout"
	case isDialFailure(err):
		reason = "dial"
	}

	f.log.Error("backend forward failed", logger.LogFields{
		"path":   r.URL.Path,
		"reason": reason,
		"error":  err.Error(),
	})
	f.onFailure(reason)
	f.errors.ServeError(w, r, status)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isDialFailure reports whether the backend could not be reached at all, as
// opposed to failing mid-exchange. Connection refused and a missing socket
// file both surface as a dial-op error.
func isDialFailure(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func realIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
