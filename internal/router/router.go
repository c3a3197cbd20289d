package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medstaff-api/internal/middleware"
	"github.com/jwalitptl/medstaff-api/pkg/auth"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
	pkgvalidator "github.com/jwalitptl/medstaff-api/pkg/validator"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// ResourceHandler serves both the admin panel and the clinic cabinet
type ResourceHandler interface {
	RegisterAdminRoutes(*gin.RouterGroup)
	RegisterClinicRoutes(*gin.RouterGroup)
}

// AdminHandler serves the admin panel only
type AdminHandler interface {
	RegisterAdminRoutes(*gin.RouterGroup)
}

type Handlers struct {
	Auth    Handler
	Clinic  ResourceHandler
	Doctor  ResourceHandler
	Order   ResourceHandler
	Health  Handler
	Metrics Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
	LogBodies        bool
	Compress         bool
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

const (
	apiPrefix  = "/api/v1"
	authPrefix = apiPrefix + "/auth"
)

func NewRouter(authMW *middleware.AuthMiddleware, handlers Handlers, m *metrics.Metrics, config RouterConfig) *Router {
	registerValidator()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = false

	r := &Router{
		engine:   engine,
		auth:     authMW,
		handlers: handlers,
	}

	// Global middleware also runs for NoRoute and NoMethod, so 404 and 405
	// responses carry CORS and request id headers.
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(middleware.LoggerConfig{
			SkipBodyPrefixes: []string{authPrefix},
			LogBodies:        config.LogBodies,
		}),
		middleware.SecurityHeaders(),
		middleware.CORS(config.CORSConfig),
		middleware.Metrics(m),
	)

	if config.Compress {
		engine.Use(middleware.Compress(middleware.DefaultCompressConfig()))
	}
	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}
	if config.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(config.RequestTimeout))
	}
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.SizeLimit(config.MaxBodyBytes))
	}

	engine.NoRoute(middleware.NotFound())
	engine.NoMethod(middleware.MethodNotAllowed())

	return r
}

func registerValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	if err := pkgvalidator.Register(v); err != nil {
		log.Warn().Err(err).Msg("failed to register custom validations")
	}
}

func (r *Router) Setup() {
	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(&r.engine.RouterGroup)
	}
	if r.handlers.Metrics != nil {
		r.handlers.Metrics.RegisterRoutes(&r.engine.RouterGroup)
	}

	api := r.engine.Group(apiPrefix)

	// Add version header
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	// Public routes
	r.handlers.Auth.RegisterRoutes(api)

	admin := api.Group("/admin")
	admin.Use(
		r.auth.Authenticate(),
		r.auth.RequireRole(auth.RoleAdmin),
	)
	r.setupAdminRoutes(admin)

	clinic := api.Group("/clinic")
	clinic.Use(
		r.auth.Authenticate(),
		r.auth.RequireRole(auth.RoleClinic),
		r.auth.RequireClinicNotBlocked(),
	)
	r.setupClinicRoutes(clinic)
}

func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	for _, h := range []AdminHandler{r.handlers.Clinic, r.handlers.Doctor, r.handlers.Order} {
		h.RegisterAdminRoutes(rg)
	}
}

func (r *Router) setupClinicRoutes(rg *gin.RouterGroup) {
	for _, h := range []ResourceHandler{r.handlers.Clinic, r.handlers.Doctor, r.handlers.Order} {
		h.RegisterClinicRoutes(rg)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
