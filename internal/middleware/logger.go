package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxLoggedBody = 2 << 10

type LoggerConfig struct {
	// SkipBodyPrefixes are path prefixes whose request bodies are never logged
	SkipBodyPrefixes []string
	// LogBodies enables request body logging for mutating requests
	LogBodies bool
}

// Logger logs one line per request. Bodies are only logged when enabled,
// never for skipped prefixes, and truncated.
func Logger(cfg LoggerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		var requestBody []byte
		if cfg.LogBodies && c.Request.Method != http.MethodGet && c.Request.Body != nil && !skipBody(cfg, path) {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody+1))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(requestBody), c.Request.Body))
		}

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		var event *zerolog.Event
		switch {
		case statusCode >= http.StatusInternalServerError:
			event = log.Error()
		case statusCode >= http.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Info()
		}

		event = event.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("user_agent", c.Request.UserAgent())

		if len(requestBody) > 0 {
			body := string(requestBody)
			if len(body) > maxLoggedBody {
				body = body[:maxLoggedBody] + "..."
			}
			event = event.Str("request", body)
		}

		switch {
		case statusCode >= http.StatusInternalServerError:
			event.Msg("Server error")
		case statusCode >= http.StatusBadRequest:
			event.Msg("Client error")
		default:
			event.Msg("Request processed")
		}
	}
}

func skipBody(cfg LoggerConfig, path string) bool {
	for _, prefix := range cfg.SkipBodyPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
