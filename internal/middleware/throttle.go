package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/httputil"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
)

const maxThrottleBody = 64 << 10

// AttemptStore counts login attempts per key within a window. Hit must
// count atomically so concurrent attempts never share a count.
type AttemptStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int, error)
	Release(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

type ThrottleConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// LoginThrottle rejects a login with 429 once its email has failed
// MaxAttempts times within Window. Every attempt takes a slot before the
// handler runs: a 401 keeps it, a 2xx clears the counter and any other
// outcome gives the slot back. Store errors let the request through.
func LoginThrottle(principal string, store AttemptStore, cfg ThrottleConfig, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.MaxAttempts <= 0 || store == nil {
			c.Next()
			return
		}

		key := principal + ":" + throttleSubject(c)
		ctx := c.Request.Context()

		attempts, err := store.Hit(ctx, key, cfg.Window)
		if err != nil {
			log.Warn().Err(err).Str("principal", principal).Msg("login throttle unavailable")
			c.Next()
			return
		}
		if attempts > cfg.MaxAttempts {
			if m != nil {
				m.LoginThrottled.Inc()
			}
			httputil.RespondWithError(c, apperrors.TooManyRequests("too many login attempts, try again later"))
			return
		}

		c.Next()

		switch status := c.Writer.Status(); {
		case status == http.StatusUnauthorized:
			// the slot stays taken until the window ends
		case status >= 200 && status < 300:
			if err := store.Reset(ctx, key); err != nil {
				log.Warn().Err(err).Str("principal", principal).Msg("failed to reset login failures")
			}
		default:
			if err := store.Release(ctx, key); err != nil {
				log.Warn().Err(err).Str("principal", principal).Msg("failed to release login attempt")
			}
		}
	}
}

// throttleSubject is the lowercased email of the login body, or the client
// ip when the body carries none. The body is restored for the handler.
func throttleSubject(c *gin.Context) string {
	if c.Request.Body != nil {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxThrottleBody))
		c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))
		if err == nil {
			var payload struct {
				Email string `json:"email"`
			}
			if json.Unmarshal(body, &payload) == nil {
				if email := strings.ToLower(strings.TrimSpace(payload.Email)); email != "" {
					return email
				}
			}
		}
	}
	return "ip:" + c.ClientIP()
}

// MemoryAttemptStore keeps counters in process, for single-instance deployments
type MemoryAttemptStore struct {
	cache *cache.Cache
}

func NewMemoryAttemptStore(window time.Duration) *MemoryAttemptStore {
	return &MemoryAttemptStore{cache: cache.New(window, 2*window)}
}

// Hit starts the window on the first attempt; later attempts do not extend it
func (s *MemoryAttemptStore) Hit(_ context.Context, key string, window time.Duration) (int, error) {
	if err := s.cache.Add(key, 1, window); err == nil {
		return 1, nil
	}
	n, err := s.cache.IncrementInt(key, 1)
	if err != nil {
		// expired between Add and IncrementInt
		s.cache.Set(key, 1, window)
		return 1, nil
	}
	return n, nil
}

func (s *MemoryAttemptStore) Release(_ context.Context, key string) error {
	// the window may have expired meanwhile
	_, _ = s.cache.DecrementInt(key, 1)
	return nil
}

func (s *MemoryAttemptStore) Reset(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
