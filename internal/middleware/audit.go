package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// AuditLog writes one line per mutating admin request once the handler has run
func AuditLog(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		var action string
		switch c.Request.Method {
		case http.MethodPost:
			action = "create"
		case http.MethodPut, http.MethodPatch:
			action = "update"
		case http.MethodDelete:
			action = "delete"
		default:
			return
		}

		event := log.Info().
			Str("audit", entityType).
			Str("action", action).
			Str("entity_id", c.Param("id")).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("request_id", c.GetString(ContextRequestID))
		if claims, ok := ClaimsFromContext(c); ok {
			event = event.Int64("actor_id", claims.PrincipalID()).Str("actor_role", claims.Role)
		}
		event.Msg("audit")
	}
}
