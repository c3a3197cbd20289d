package order

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
	ListOrders(ctx context.Context, params query.Params) (*model.Page[model.OrderView], error)
	GetOrder(ctx context.Context, id int64) (*model.OrderDetail, error)
	UpdateOrder(ctx context.Context, id int64, patch query.Patch, actorID int64) (*model.OrderRef, error)
	ListClinicOrders(ctx context.Context, clinicID int64, params query.Params) (*model.Page[model.OrderView], error)
	GetClinicOrder(ctx context.Context, clinicID, id int64) (*model.OrderDetail, error)
	CreateOrder(ctx context.Context, clinicID int64, req *model.OrderCreateRequest) (*model.Order, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders", middleware.AuditLog("order"))
	{
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id", h.UpdateOrder)
		orders.PUT("/:id", h.UpdateOrder)
	}
}

func (h *Handler) RegisterClinicRoutes(r *gin.RouterGroup) {
	orders := r.Group("/orders")
	{
		orders.GET("", h.ListClinicOrders)
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetClinicOrder)
	}
}

func (h *Handler) ListOrders(c *gin.Context) {
	params, err := handler.ListParams(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	page, err := h.svc.ListOrders(c.Request.Context(), params)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, handler.PageBody("orders", page))
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	order, err := h.svc.GetOrder(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{"order": order})
}

func (h *Handler) UpdateOrder(c *gin.Context) {
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

	ref, err := h.svc.UpdateOrder(c.Request.Context(), id, patch, actorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{
		"message": "order updated",
		"order":   ref,
	})
}

func (h *Handler) ListClinicOrders(c *gin.Context) {
	clinicID, err := handler.PrincipalID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	params, err := handler.ListParams(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	page, err := h.svc.ListClinicOrders(c.Request.Context(), clinicID, params)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, handler.PageBody("orders", model.MapPage(page, model.OrderView.ForClinic)))
}

func (h *Handler) GetClinicOrder(c *gin.Context) {
	clinicID, err := handler.PrincipalID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	id, err := handler.ParseID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	order, err := h.svc.GetClinicOrder(c.Request.Context(), clinicID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.OK(c, gin.H{"order": order.ForClinic()})
}

func (h *Handler) CreateOrder(c *gin.Context) {
	clinicID, err := handler.PrincipalID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.OrderCreateRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	order, err := h.svc.CreateOrder(c.Request.Context(), clinicID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.Created(c, gin.H{
		"message": "order created",
		"order":   order.ForClinic(),
	})
}
