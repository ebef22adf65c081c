package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-sitekit/internal/etag"
)

//go:embed static/*
var EmbeddedStaticFS embed.FS

// ListEmbeddedFiles returns a list of all embedded static files for debugging
func ListEmbeddedFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(EmbeddedStaticFS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// EmbeddedStaticHandler serves the embedded static files with cache
// headers and conditional-request handling. Any ?serial query string is
// ignored here; it exists purely to bust browser caches.
func (s *WebServer) EmbeddedStaticHandler(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		relPath := strings.TrimPrefix(c.Param("filepath"), "/")
		if relPath == "" || strings.Contains(relPath, "..") {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		content, err := fs.ReadFile(EmbeddedStaticFS, "static/"+relPath)
		if err != nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		c.Header("Cache-Control", "public, max-age=3600") // browser caches an hour
		if etag.HandleIfNoneMatch(c, etag.FromContent(content)) {
			return
		}
		c.Data(http.StatusOK, getContentType(relPath), content)
	}
}

// EmbeddedFileHandler returns a Gin handler for serving a single embedded file
func EmbeddedFileHandler(filePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		content, err := fs.ReadFile(EmbeddedStaticFS, filePath)
		if err != nil {
			// Fall back to regular file serving
			c.File(filePath)
			return
		}

		if etag.HandleIfNoneMatch(c, etag.FromContent(content)) {
			return
		}
		c.Data(http.StatusOK, getContentType(filePath), content)
	}
}

// getContentType returns the appropriate MIME type for common file extensions
func getContentType(filePath string) string {
	switch path.Ext(filePath) {
	case ".ico":
		return "image/x-icon"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".woff":
		return "font/woff"
	case ".woff2":
		return "font/woff2"
	case ".ttf":
		return "font/ttf"
	case ".html":
		return "text/html"
	case ".xml":
		return "application/xml"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
