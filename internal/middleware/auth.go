package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/pkg/auth"
	apperrors "github.com/jwalitptl/medstaff-api/pkg/errors"
	"github.com/jwalitptl/medstaff-api/pkg/httputil"
)

const (
	ContextClaims = "auth_claims"
	ContextClinic = "auth_clinic"

	bearerPrefix = "bearer "
)

// TokenVerifier turns a raw token into claims or a 401 AppError
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// ClinicLookup loads the current clinic record of a clinic principal
type ClinicLookup interface {
	GetClinic(ctx context.Context, id int64) (*model.Clinic, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	clinics  ClinicLookup
	header   string
}

func NewAuthMiddleware(verifier TokenVerifier, clinics ClinicLookup, header string) *AuthMiddleware {
	if header == "" {
		header = "X-Auth-Token"
	}
	return &AuthMiddleware{
		verifier: verifier,
		clinics:  clinics,
		header:   header,
	}
}

// Authenticate verifies the token from the configured header, falling back
// to Authorization, and stores the claims in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader(m.header))
		if token == "" {
			token = extractToken(c.GetHeader("Authorization"))
		}
		if token == "" {
			httputil.RespondWithError(c, apperrors.Unauthenticated("authentication token is required", nil))
			return
		}

		claims, err := m.verifier.VerifyToken(token)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRole rejects principals of any other role
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			httputil.RespondWithError(c, apperrors.Unauthenticated("authentication token is required", nil))
			return
		}
		if claims.Role != role {
			httputil.RespondWithError(c, apperrors.Forbidden("access denied"))
			return
		}
		c.Next()
	}
}

// RequireClinicNotBlocked re-reads the clinic so a block takes effect
// before the token expires.
func (m *AuthMiddleware) RequireClinicNotBlocked() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok || claims.Role != auth.RoleClinic {
			httputil.RespondWithError(c, apperrors.Forbidden("access denied"))
			return
		}

		clinic, err := m.clinics.GetClinic(c.Request.Context(), claims.PrincipalID())
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindNotFound {
				err = apperrors.Unauthenticated("invalid token", err)
			}
			httputil.RespondWithError(c, err)
			return
		}
		if clinic.AccountStatus == model.ClinicBlocked {
			httputil.RespondWithError(c, apperrors.Forbidden("clinic account is blocked"))
			return
		}

		c.Set(ContextClinic, clinic)
		c.Next()
	}
}

func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// ClinicFromContext returns the clinic loaded by RequireClinicNotBlocked
func ClinicFromContext(c *gin.Context) (*model.Clinic, bool) {
	v, ok := c.Get(ContextClinic)
	if !ok {
		return nil, false
	}
	clinic, ok := v.(*model.Clinic)
	return clinic, ok
}

func extractToken(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		value = strings.TrimSpace(value[len(bearerPrefix):])
	}
	return value
}
