package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"example.com/mediagate/internal/config"
)

func newTestClassifier(siteRoot string) *Classifier {
	return New(&config.RoutesConfig{
		SiteRoot:        siteRoot,
		MediaPrefix:     "/media",
		StaticPrefix:    "/static",
		ErrorDocsPrefix: "/errordocs",
		UploadPrefix:    "/media/uploaded",
	})
}

func TestClassify(t *testing.T) {
	c := newTestClassifier("")

	tests := []struct {
		path     string
		kind     Kind
		residual string
	}{
		{"/media/logo.png", KindMedia, "logo.png"},
		{"/media/avatars/1/a.jpg", KindMedia, "avatars/1/a.jpg"},
		{"/media", KindMedia, ""},
		{"/media/uploaded/evil.php", KindUpload, "evil.php"},
		{"/media/uploaded/images/x.png", KindUpload, "images/x.png"},
		{"/media/uploaded", KindUpload, ""},
		{"/static/app.css", KindStatic, "app.css"},
		{"/static", KindStatic, ""},
		{"/errordocs/500.html", KindErrorDocs, "500.html"},
		{"/", KindApp, ""},
		{"/api/reviews/1/", KindApp, "api/reviews/1/"},
		{"/dashboard", KindApp, "dashboard"},
		// Segment boundaries: sibling paths must not match an alias.
		{"/mediafoo", KindApp, "mediafoo"},
		{"/staticx/app.css", KindApp, "staticx/app.css"},
		{"/media/uploadedx", KindMedia, "uploadedx"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			d := c.Classify(tc.path)
			assert.Equal(t, tc.kind, d.Kind, "kind for %s", tc.path)
			assert.Equal(t, tc.residual, d.Residual, "residual for %s", tc.path)
		})
	}
}

func TestClassifyNormalizesPath(t *testing.T) {
	c := newTestClassifier("")

	tests := []struct {
		path     string
		kind     Kind
		residual string
	}{
		// Dot segments and duplicate slashes must not reach the upload
		// tree through the media prefix.
		{"/media/x/../uploaded/evil.html", KindUpload, "evil.html"},
		{"/media//uploaded/evil.html", KindUpload, "evil.html"},
		{"/media/./uploaded/evil.html", KindUpload, "evil.html"},
		{"/media/uploaded//evil.html", KindUpload, "evil.html"},
		{"//media/logo.png", KindMedia, "logo.png"},
		{"/static/css/../app.css", KindStatic, "app.css"},
		{"/media/uploaded/..", KindMedia, ""},
		{"/..", KindApp, ""},
		// Trailing slash survives normalization; the backend sees it.
		{"/api/reviews/1/../2/", KindApp, "api/reviews/2/"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			d := c.Classify(tc.path)
			assert.Equal(t, tc.kind, d.Kind, "kind for %s", tc.path)
			assert.Equal(t, tc.residual, d.Residual, "residual for %s", tc.path)
		})
	}
}

func TestClassifyUploadWinsOverMedia(t *testing.T) {
	// The upload prefix nests under the media prefix; longest-prefix
	// ordering must make it reachable.
	c := newTestClassifier("")
	d := c.Classify("/media/uploaded/report.pdf")
	assert.Equal(t, KindUpload, d.Kind)
	assert.Equal(t, "report.pdf", d.Residual)
}

func TestClassifyWithSiteRoot(t *testing.T) {
	c := newTestClassifier("/r")

	d := c.Classify("/r/media/logo.png")
	assert.Equal(t, KindMedia, d.Kind)
	assert.Equal(t, "logo.png", d.Residual)

	d = c.Classify("/r/api/reviews/1/")
	assert.Equal(t, KindApp, d.Kind)
	assert.Equal(t, "api/reviews/1/", d.Residual)

	d = c.Classify("/r")
	assert.Equal(t, KindApp, d.Kind)
	assert.Equal(t, "", d.Residual)

	// Outside the site root: still classified, still total.
	d = c.Classify("/elsewhere/x")
	assert.Equal(t, KindApp, d.Kind)
	assert.Equal(t, "elsewhere/x", d.Residual)
}

func TestClassifyIdempotent(t *testing.T) {
	c := newTestClassifier("")

	for _, path := range []string{"/api/reviews/1/", "/dashboard", "/", "/mediafoo"} {
		first := c.Classify(path)
		assert.Equal(t, KindApp, first.Kind)

		// Replaying the rewritten application path classifies identically.
		second := c.Classify(first.Residual)
		assert.Equal(t, first.Kind, second.Kind, "kind drift for %s", path)
		assert.Equal(t, first.Residual, second.Residual, "residual drift for %s", path)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "media", KindMedia.String())
	assert.Equal(t, "static", KindStatic.String())
	assert.Equal(t, "errordocs", KindErrorDocs.String())
	assert.Equal(t, "upload", KindUpload.String())
	assert.Equal(t, "app", KindApp.String())
}
