package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// gzipWriter starts compressing on the first body write, so responses
// without a body (preflights, aborts) go out untouched.
type gzipWriter struct {
	gin.ResponseWriter
	level int
	gz    *gzip.Writer
}

func (g *gzipWriter) Write(data []byte) (int, error) {
	if g.gz == nil {
		h := g.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")

		gz, err := gzip.NewWriterLevel(g.ResponseWriter, g.level)
		if err != nil {
			return 0, err
		}
		g.gz = gz
	}
	return g.gz.Write(data)
}

func (g *gzipWriter) WriteString(s string) (int, error) {
	return g.Write([]byte(s))
}

func (g *gzipWriter) close() {
	if g.gz != nil {
		_ = g.gz.Close()
	}
}

type CompressConfig struct {
	Level int
	// SkipPrefixes are paths that are never compressed
	SkipPrefixes []string
}

func DefaultCompressConfig() CompressConfig {
	return CompressConfig{
		Level:        gzip.DefaultCompression,
		SkipPrefixes: []string{"/health", "/metrics"},
	}
}

// Compress gzips response bodies for clients that accept it
func Compress(config CompressConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions ||
			!strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}
		for _, prefix := range config.SkipPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		w := &gzipWriter{ResponseWriter: c.Writer, level: config.Level}
		c.Writer = w
		defer w.close()

		c.Next()
	}
}
