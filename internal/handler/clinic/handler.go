package clinic

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medstaff-api/internal/handler"
	"github.com/jwalitptl/medstaff-api/internal/middleware"
	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/pkg/httputil"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

type Service interface {
	ListClinics(ctx context.Context, params query.Params) (*model.Page[model.Clinic], error)
	GetClinic(ctx context.Context, id int64) (*model.Clinic, error)
	UpdateClinic(ctx context.Context, id int64, patch query.Patch, actorID int64) (*model.ClinicSummary, error)
	SetStatus(ctx context.Context, id int64, status model.ClinicStatus, actorID int64) (*model.ClinicSummary, error)
	SetNotes(ctx context.Context, id int64, notes *string, actorID int64) (*model.ClinicSummary, error)
	Profile(ctx context.Context, clinicID int64) (*model.Clinic, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes mounts the moderation endpoints under an admin group
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	clinics := r.Group("/clinics", middleware.AuditLog("clinic"))
	{
		clinics.GET("", h.ListClinics)
		clinics.GET("/:id", h.GetClinic)
		clinics.PATCH("/:id", h.UpdateClinic)
		clinics.PUT("/:id/status", h.UpdateStatus)
		clinics.PUT("/:id/notes", h.UpdateNotes)
	}
}

// RegisterClinicRoutes mounts the self-service endpoints under a clinic group
func (h *Handler) RegisterClinicRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.Me)
}

func (h *Handler) ListClinics(c *gin.Context) {
	params, err := handler.ListParams(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	page, err := h.svc.ListClinics(c.Request.Context(), params)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, handler.PageBody("clinics", page))
}

func (h *Handler) GetClinic(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	clinic, err := h.svc.GetClinic(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{"clinic": clinic})
}

func (h *Handler) UpdateClinic(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	patch, err := handler.BindPatch(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	actorID, err := handler.PrincipalID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	summary, err := h.svc.UpdateClinic(c.Request.Context(), id, patch, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{
		"message": "clinic updated",
		"clinic":  summary,
	})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.ClinicStatusRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	actorID, err := handler.PrincipalID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	summary, err := h.svc.SetStatus(c.Request.Context(), id, req.Status, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{
		"message": "clinic status updated",
		"clinic":  summary,
	})
}

func (h *Handler) UpdateNotes(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.ClinicNotesRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	actorID, err := handler.PrincipalID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	summary, err := h.svc.SetNotes(c.Request.Context(), id, req.Notes, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{
		"message": "clinic notes updated",
		"clinic":  summary,
	})
}

// Me returns the caller's own clinic. The auth gate has usually loaded it already.
func (h *Handler) Me(c *gin.Context) {
	if clinic, ok := middleware.ClinicFromContext(c); ok {
		httputil.OK(c, gin.H{"clinic": clinic.Profile()})
		return
	}

	clinicID, err := handler.PrincipalID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	clinic, err := h.svc.Profile(c.Request.Context(), clinicID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{"clinic": clinic.Profile()})
}
