package web

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed static/*
var staticFS embed.FS

type asset struct {
	contentType string
	body        []byte
	etag        string
}

// Assets holds the grid's static files, minified once at startup
type Assets struct {
	files map[string]asset
}

func LoadAssets(minifyAssets bool) (*Assets, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)

	entries, err := staticFS.ReadDir("static")
	if err != nil {
		return nil, fmt.Errorf("failed to read static assets: %w", err)
	}

	assets := &Assets{files: make(map[string]asset, len(entries))}
	for _, entry := range entries {
		name := entry.Name()
		contentType := contentTypeFor(name)
		if contentType == "" {
			continue
		}

		body, err := staticFS.ReadFile(path.Join("static", name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		if minifyAssets {
			var out bytes.Buffer
			if err := m.Minify(contentType, &out, bytes.NewReader(body)); err != nil {
				return nil, fmt.Errorf("failed to minify %s: %w", name, err)
			}
			body = out.Bytes()
		}

		sum := sha256.Sum256(body)
		assets.files[name] = asset{
			contentType: contentType,
			body:        body,
			etag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
	}
	return assets, nil
}

func contentTypeFor(name string) string {
	switch path.Ext(name) {
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	default:
		return ""
	}
}

// Get returns the body of a named asset
func (a *Assets) Get(name string) ([]byte, bool) {
	f, ok := a.files[name]
	return f.body, ok
}

func (a *Assets) serve(c *gin.Context) {
	f, ok := a.files[c.Param("file")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("ETag", f.etag)
	if c.GetHeader("If-None-Match") == f.etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, f.contentType+"; charset=utf-8", f.body)
}
