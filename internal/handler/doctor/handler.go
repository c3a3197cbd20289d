package doctor

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medstaff-api/internal/handler"
	"github.com/jwalitptl/medstaff-api/internal/middleware"
	"github.com/jwalitptl/medstaff-api/internal/model"
	"github.com/jwalitptl/medstaff-api/pkg/httputil"
	"github.com/jwalitptl/medstaff-api/pkg/query"
)

type Service interface {
	ListDoctors(ctx context.Context, params query.Params) (*model.Page[model.DoctorSummary], error)
	Catalog(ctx context.Context, params query.Params) (*model.Page[model.DoctorSummary], error)
	GetDoctor(ctx context.Context, id int64) (*model.Doctor, error)
	CreateDoctor(ctx context.Context, req *model.DoctorCreateRequest) (*model.DoctorRef, error)
	UpdateDoctor(ctx context.Context, id int64, patch query.Patch, actorID int64) (*model.DoctorRef, error)
	DeleteDoctor(ctx context.Context, id int64) (string, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors", middleware.AuditLog("doctor"))
	{
		doctors.GET("", h.ListDoctors)
		doctors.POST("", h.CreateDoctor)
		doctors.GET("/:id", h.GetDoctor)
		doctors.PATCH("/:id", h.UpdateDoctor)
		doctors.PUT("/:id", h.UpdateDoctor)
		doctors.DELETE("/:id", h.DeleteDoctor)
	}
}

func (h *Handler) RegisterClinicRoutes(r *gin.RouterGroup) {
	r.GET("/doctors", h.Catalog)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	h.list(c, h.svc.ListDoctors)
}

// Catalog is the clinic-facing list of bookable doctors
func (h *Handler) Catalog(c *gin.Context) {
	h.list(c, h.svc.Catalog)
}

func (h *Handler) list(c *gin.Context, fetch func(context.Context, query.Params) (*model.Page[model.DoctorSummary], error)) {
	params, err := handler.ListParams(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	page, err := fetch(c.Request.Context(), params)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, handler.PageBody("doctors", page))
}

func (h *Handler) GetDoctor(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	doctor, err := h.svc.GetDoctor(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{"doctor": doctor})
}

func (h *Handler) CreateDoctor(c *gin.Context) {
	var req model.DoctorCreateRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	ref, err := h.svc.CreateDoctor(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.Created(c, gin.H{
		"message": "doctor created",
		"doctor":  ref,
	})
}

func (h *Handler) UpdateDoctor(c *gin.Context) {
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

	ref, err := h.svc.UpdateDoctor(c.Request.Context(), id, patch, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{
		"message": "doctor updated",
		"doctor":  ref,
	})
}

func (h *Handler) DeleteDoctor(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	name, err := h.svc.DeleteDoctor(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{"message": fmt.Sprintf("doctor %s deleted", name)})
}
