package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/httputil"
)

// NotFound answers unknown paths in the error envelope
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		httputil.RespondWithError(c, apperrors.NotFound("route", nil))
	}
}

// MethodNotAllowed answers known paths called with an unsupported method
func MethodNotAllowed() gin.HandlerFunc {
	return func(c *gin.Context) {
		httputil.RespondWithError(c, apperrors.MethodNotSupported())
	}
}
