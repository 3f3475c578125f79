package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError describes a single rejected configuration value. It keeps
// the section/field location so operators can find the offending line.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the fully-defaulted configuration and returns the first
// violation found. A non-nil error means the process must not start.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRoutes(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Listen == "" {
		return invalid("server.listen", "must not be empty")
	}
	if *c.Server.MaxConnections <= 0 {
		return invalid("server.max_connections", "must be positive, got %d", *c.Server.MaxConnections)
	}
	if c.Server.ReadTimeout.Std() <= 0 || c.Server.WriteTimeout.Std() <= 0 {
		return invalid("server", "read_timeout and write_timeout must be positive")
	}
	return nil
}

func (c *Config) validateRoutes() error {
	r := c.Routes

	if r.SiteRoot != "" {
		if !strings.HasPrefix(r.SiteRoot, "/") || strings.HasSuffix(r.SiteRoot, "/") {
			return invalid("routes.site_root", "must start with '/' and not end with '/', got %q", r.SiteRoot)
		}
	}

	prefixes := map[string]string{
		"routes.media_prefix":     r.MediaPrefix,
		"routes.static_prefix":    r.StaticPrefix,
		"routes.errordocs_prefix": r.ErrorDocsPrefix,
		"routes.upload_prefix":    r.UploadPrefix,
	}
	for field, prefix := range prefixes {
		if !strings.HasPrefix(prefix, "/") {
			return invalid(field, "must start with '/', got %q", prefix)
		}
		if strings.HasSuffix(prefix, "/") {
			return invalid(field, "must not end with '/', got %q", prefix)
		}
	}

	// The upload tree is an overlay on the media tree; a disjoint prefix
	// would leave uploads served without sanitization.
	if !strings.HasPrefix(r.UploadPrefix, r.MediaPrefix+"/") {
		return invalid("routes.upload_prefix", "%q must nest under media_prefix %q", r.UploadPrefix, r.MediaPrefix)
	}

	roots := map[string]string{
		"routes.media_root":     r.MediaRoot,
		"routes.static_root":    r.StaticRoot,
		"routes.errordocs_root": r.ErrorDocsRoot,
	}
	for field, root := range roots {
		if root == "" {
			return invalid(field, "is required")
		}
		fi, err := os.Stat(root)
		if err != nil {
			return invalid(field, "%q: %v", root, err)
		}
		if !fi.IsDir() {
			return invalid(field, "%q is not a directory", root)
		}
	}

	if r.ErrorDocument != "" {
		fi, err := os.Stat(r.ErrorDocument)
		if err != nil {
			return invalid("routes.error_document", "%q: %v", r.ErrorDocument, err)
		}
		if fi.IsDir() {
			return invalid("routes.error_document", "%q is a directory", r.ErrorDocument)
		}
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.Network != "unix" {
		return invalid("backend.network", "only \"unix\" is supported, got %q", c.Backend.Network)
	}
	if c.Backend.Address == "" {
		return invalid("backend.address", "is required")
	}
	if c.Backend.ResponseTimeout.Std() <= 0 || c.Backend.DialTimeout.Std() <= 0 {
		return invalid("backend", "dial_timeout and response_timeout must be positive")
	}
	if *c.Backend.MaxIdleConns <= 0 {
		return invalid("backend.max_idle_conns", "must be positive, got %d", *c.Backend.MaxIdleConns)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
	default:
		return invalid("logging.level", "must be one of DEBUG, INFO, WARNING, ERROR; got %q", c.Logging.Level)
	}
	for field, target := range map[string]string{
		"logging.access_target": c.Logging.AccessTarget,
		"logging.error_target":  c.Logging.ErrorTarget,
	} {
		if target == "stdout" || target == "stderr" {
			continue
		}
		if !strings.HasPrefix(target, "/") {
			return invalid(field, "must be \"stdout\", \"stderr\" or an absolute path; got %q", target)
		}
	}
	return nil
}
