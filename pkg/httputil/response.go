package httputil

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrorBody is the payload of every 4xx/5xx response
type ErrorBody struct {
	Error string `json:"error"`
}

// RespondWithSuccess writes {"success": true} merged with data at the top level.
func RespondWithSuccess(c *gin.Context, status int, data gin.H) {
	body := gin.H{"success": true}
	for k, v := range data {
		if k == "success" {
			continue
		}
		body[k] = v
	}
	c.JSON(status, body)
}

// OK is RespondWithSuccess with 200
func OK(c *gin.Context, data gin.H) {
	RespondWithSuccess(c, http.StatusOK, data)
}

// Created is RespondWithSuccess with 201
func Created(c *gin.Context, data gin.H) {
	RespondWithSuccess(c, http.StatusCreated, data)
}

// RespondWithError writes {"error": msg} with the status of the error kind.
// Anything that is not an AppError is logged and reported as a generic 500.
func RespondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	if appErr, ok := errors.As(err); ok {
		status = appErr.StatusCode()
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		message = "internal server error"
		if stderrors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
			message = "request timed out"
		}
	}

	c.AbortWithStatusJSON(status, ErrorBody{Error: message})
}
