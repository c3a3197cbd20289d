package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type CORSConfig struct {
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        time.Duration
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"X-Auth-Token",
			"X-Request-ID",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
		},
		MaxAge: 24 * time.Hour,
	}
}

func allowsAllOrigins(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// CORS answers preflight requests with 200 and stamps the allow headers on
// cross-origin responses. With every origin allowed, requests the library
// skips (no Origin header, same-origin) still get the wildcard.
func CORS(config CORSConfig) gin.HandlerFunc {
	allowAll := allowsAllOrigins(config.AllowOrigins)

	cfg := cors.Config{
		AllowAllOrigins:           allowAll,
		AllowMethods:              config.AllowMethods,
		AllowHeaders:              config.AllowHeaders,
		ExposeHeaders:             config.ExposeHeaders,
		MaxAge:                    config.MaxAge,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if !allowAll {
		cfg.AllowOrigins = config.AllowOrigins
	}
	handler := cors.New(cfg)

	return func(c *gin.Context) {
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		}
		handler(c)
	}
}
