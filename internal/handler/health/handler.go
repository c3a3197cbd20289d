package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by *sqlx.DB and the redis attempt store
type Pinger interface {
	PingContext(ctx context.Context) error
}

type check struct {
	name     string
	pinger   Pinger
	critical bool
}

type Option func(*Handler)

// WithOptionalCheck adds a dependency whose failure degrades readiness without failing it
func WithOptionalCheck(name string, p Pinger) Option {
	return func(h *Handler) {
		h.checks = append(h.checks, check{name: name, pinger: p})
	}
}

type Handler struct {
	checks []check
}

func NewHandler(db Pinger, opts ...Option) *Handler {
	h := &Handler{
		checks: []check{{name: "database", pinger: db, critical: true}},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	status := "UP"
	results := make(gin.H, len(h.checks))
	for _, chk := range h.checks {
		if err := chk.pinger.PingContext(ctx); err != nil {
			log.Warn().Err(err).Str("check", chk.name).Msg("readiness check failed")
			results[chk.name] = "DOWN"
			if chk.critical {
				status = "DOWN"
			} else if status == "UP" {
				status = "DEGRADED"
			}
			continue
		}
		results[chk.name] = "UP"
	}

	if status == "DOWN" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": status,
			"checks": results,
			"reason": "database connection failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "checks": results})
}
