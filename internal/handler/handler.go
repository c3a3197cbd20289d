// Package handler holds the request helpers shared by the resource handlers.
package handler

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medstaff-api/internal/middleware"
	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/query"
	"github.com/jwalitptl/medstaff-api/pkg/validator"
)

// BindJSON binds and validates the body, translating failures into a 400
func BindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return validator.Translate(err)
	}
	return nil
}

// BindPatch reads a partial-update body: a JSON object of field to value
func BindPatch(c *gin.Context) (query.Patch, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, validator.Translate(err)
	}
	if len(body) == 0 {
		return nil, apperrors.Validationf("request body is required")
	}

	var patch query.Patch
	if err := json.Unmarshal(body, &patch); err != nil {
		return nil, apperrors.Validation("request body must be a JSON object", err)
	}
	if len(patch) == 0 {
		return nil, apperrors.ErrNoFieldsToUpdate
	}
	return patch, nil
}

// ParseID reads a positive integer path parameter
func ParseID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validationf("invalid %s %q", name, raw)
	}
	return id, nil
}

// ListParams reads search, filters and the page window from the query string
func ListParams(c *gin.Context) (query.Params, error) {
	return query.ParamsFromValues(c.Request.URL.Query())
}

// PrincipalID is the id of the authenticated admin or clinic
func PrincipalID(c *gin.Context) (int64, error) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return 0, apperrors.Unauthenticated("authentication token is required", nil)
	}
	return claims.PrincipalID(), nil
}
