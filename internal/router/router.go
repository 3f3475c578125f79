// Package router implements the path classifier. Every inbound request path
// maps to exactly one destination kind; the rules are built once from
// configuration and never mutated, so a Classifier is safe to share across
// concurrent requests.
package router

import (
	"path"
	"sort"
	"strings"

	"example.com/mediagate/internal/config"
)

// Kind is the classification outcome that determines which component
// handles a request.
type Kind int

const (
	// KindApp is the fallback: the request is forwarded to the backend
	// application.
	KindApp Kind = iota
	// KindMedia is application-managed media served from the media root.
	KindMedia
	// KindStatic is a bundled static asset served from the static root.
	KindStatic
	// KindErrorDocs is a custom error document served from the errordocs
	// root.
	KindErrorDocs
	// KindUpload is user-uploaded media beneath the media tree, served
	// with sanitization overrides.
	KindUpload
)

// String returns the kind's name as used in logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindMedia:
		return "media"
	case KindStatic:
		return "static"
	case KindErrorDocs:
		return "errordocs"
	case KindUpload:
		return "upload"
	default:
		return "app"
	}
}

// Rule binds a URL path prefix to a destination kind.
type Rule struct {
	Prefix string
	Kind   Kind
}

// Decision is the result of classifying one request path.
type Decision struct {
	Kind Kind
	// Residual is the path remainder the destination handler operates on:
	// for static kinds the part after the matched prefix, for the app
	// fallback the full path after the site root with the leading slash
	// trimmed (the capture group of the terminal rewrite).
	Residual string
}

// Classifier matches request paths against an ordered prefix rule list.
type Classifier struct {
	siteRoot string
	rules    []Rule
}

// New builds a Classifier from the routes configuration. Rules are sorted
// longest-prefix-first so that the upload prefix, which nests under the
// media prefix, is reachable; within that ordering the first match wins.
func New(routes *config.RoutesConfig) *Classifier {
	rules := []Rule{
		{Prefix: routes.MediaPrefix, Kind: KindMedia},
		{Prefix: routes.StaticPrefix, Kind: KindStatic},
		{Prefix: routes.ErrorDocsPrefix, Kind: KindErrorDocs},
		{Prefix: routes.UploadPrefix, Kind: KindUpload},
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].Prefix) > len(rules[j].Prefix)
	})
	return &Classifier{
		siteRoot: routes.SiteRoot,
		rules:    rules,
	}
}

// Classify maps a request path to its destination. The path is canonicalized
// first so every spelling of a path (dot segments, duplicate slashes) reaches
// the same destination; without this, "/media/x/../uploaded/f" would match
// the media prefix and bypass the upload overlay once the filesystem resolves
// it. The query string is not part of classification and passes through
// untouched. Classify is idempotent: feeding a decision's rewritten path back
// in yields the same decision.
func (c *Classifier) Classify(reqPath string) Decision {
	reqPath = cleanPath(reqPath)

	rel, ok := c.stripSiteRoot(reqPath)
	if !ok {
		// Outside the site root entirely: still classified (classification
		// is total), falling through to the application.
		return Decision{Kind: KindApp, Residual: strings.TrimPrefix(reqPath, "/")}
	}

	for _, rule := range c.rules {
		if residual, ok := matchPrefix(rel, rule.Prefix); ok {
			return Decision{Kind: rule.Kind, Residual: residual}
		}
	}
	return Decision{Kind: KindApp, Residual: strings.TrimPrefix(rel, "/")}
}

// cleanPath collapses dot segments and duplicate slashes. The trailing slash
// is significant to the backend and is preserved.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	clean := path.Clean(p)
	if clean != "/" && strings.HasSuffix(p, "/") {
		clean += "/"
	}
	return clean
}

// stripSiteRoot removes the configured site root from path. The second
// return is false when the path does not live under the site root.
func (c *Classifier) stripSiteRoot(path string) (string, bool) {
	if c.siteRoot == "" {
		return path, true
	}
	if path == c.siteRoot {
		return "/", true
	}
	if strings.HasPrefix(path, c.siteRoot+"/") {
		return path[len(c.siteRoot):], true
	}
	return "", false
}

// matchPrefix reports whether path lives under prefix, honoring segment
// boundaries: "/mediafoo" does not match "/media". On a match it returns
// the residual with its leading slash trimmed.
func matchPrefix(path, prefix string) (string, bool) {
	if path == prefix {
		return "", true
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix)+1:], true
	}
	return "", false
}
