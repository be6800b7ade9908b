package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

// CompressConfig represents compression configuration
type CompressConfig struct {
	Level int
	Types []string
}

// DefaultCompressConfig returns default compression configuration
func DefaultCompressConfig() CompressConfig {
	return CompressConfig{
		Level: gzip.DefaultCompression,
		Types: []string{"application/json"},
	}
}

// gzipWriter decides on the first body write, once the handler has set Content-Type.
type gzipWriter struct {
	gin.ResponseWriter
	config  CompressConfig
	gz      *gzip.Writer
	decided bool
}

func (w *gzipWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true

	h := w.Header()
	if h.Get("Content-Encoding") != "" || !matchesType(h.Get("Content-Type"), w.config.Types) {
		return
	}
	gz, err := gzip.NewWriterLevel(w.ResponseWriter, w.config.Level)
	if err != nil {
		return
	}
	w.gz = gz
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	w.decide()
	if w.gz != nil {
		return w.gz.Write(data)
	}
	return w.ResponseWriter.Write(data)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipWriter) close() {
	if w.gz != nil {
		_ = w.gz.Close()
	}
}

func matchesType(contentType string, types []string) bool {
	for _, t := range types {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

// Compress gzips responses of the configured content types for clients that accept it.
func Compress(config CompressConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodHead || !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		w := &gzipWriter{ResponseWriter: c.Writer, config: config}
		c.Writer = w
		defer w.close()

		c.Next()
	}
}
