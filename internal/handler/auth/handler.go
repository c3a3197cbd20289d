package auth

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medstaff-api/internal/handler"
	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/pkg/auth"
	"github.com/jwalitptl/medstaff-api/pkg/httputil"
)

type Service interface {
	AdminLogin(ctx context.Context, email, password string) (*model.AdminSession, error)
	VerifyAdminToken(token string) (*auth.Claims, error)
	RegisterClinic(ctx context.Context, req *model.ClinicRegisterRequest) (*model.ClinicSession, error)
	ClinicLogin(ctx context.Context, email, password string) (*model.ClinicSession, error)
}

type Handler struct {
	svc Service
	// throttle guards the login endpoints; nil disables it
	adminThrottle  gin.HandlerFunc
	clinicThrottle gin.HandlerFunc
}

func NewHandler(svc Service, adminThrottle, clinicThrottle gin.HandlerFunc) *Handler {
	return &Handler{svc: svc, adminThrottle: adminThrottle, clinicThrottle: clinicThrottle}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/admin/login", chain(h.adminThrottle, h.AdminLogin)...)
		auth.POST("/admin/verify", h.VerifyAdmin)
		auth.POST("/clinic/register", h.RegisterClinic)
		auth.POST("/clinic/login", chain(h.clinicThrottle, h.ClinicLogin)...)
	}
}

func chain(throttle, fn gin.HandlerFunc) []gin.HandlerFunc {
	if throttle == nil {
		return []gin.HandlerFunc{fn}
	}
	return []gin.HandlerFunc{throttle, fn}
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var req model.LoginRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	session, err := h.svc.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{
		"message":    "login successful",
		"admin":      session.Admin,
		"token":      session.Token,
		"user_type":  auth.RoleAdmin,
		"expires_at": session.ExpiresAt,
	})
}

func (h *Handler) VerifyAdmin(c *gin.Context) {
	var req model.VerifyRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	claims, err := h.svc.VerifyAdminToken(req.Token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{
		"valid": true,
		"admin": claims,
	})
}

func (h *Handler) RegisterClinic(c *gin.Context) {
	var req model.ClinicRegisterRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	session, err := h.svc.RegisterClinic(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.Created(c, gin.H{
		"message":    "registration received, the account is awaiting moderation",
		"clinic":     session.Clinic,
		"token":      session.Token,
		"user_type":  auth.RoleClinic,
		"expires_at": session.ExpiresAt,
	})
}

func (h *Handler) ClinicLogin(c *gin.Context) {
	var req model.LoginRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	session, err := h.svc.ClinicLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{
		"message":    "login successful",
		"clinic":     session.Clinic,
		"token":      session.Token,
		"user_type":  auth.RoleClinic,
		"expires_at": session.ExpiresAt,
	})
}
