package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tapbook/internal/middleware"
	"tapbook/internal/pkg/response"
	"tapbook/internal/pkg/validator"
	"tapbook/internal/repository"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/services", h.ListServices)
	v1.GET("/services/:id", h.GetService)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	provider := protected.Group("/provider/service", middleware.ProviderOnly())
	{
		provider.GET("", h.GetMine)
		provider.POST("", h.CreateService)
	}

	owner := protected.Group("/services", middleware.ProviderOnly())
	{
		owner.PUT("/:id", h.UpdateService)
		owner.PUT("/:id/business-hours", h.UpdateBusinessHours)
		owner.DELETE("/:id", h.DeleteService)
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID")
		return 0, false
	}
	return id, true
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return false
	}
	return true
}

// ListServices handles GET /api/v1/services with category and text filters
func (h *Handler) ListServices(c *gin.Context) {
	f := repository.ServiceFilter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
		Limit:    20,
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		f.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		f.Offset = v
	}

	out, err := h.service.ListServices(c.Request.Context(), f)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) GetService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	out, err := h.service.GetService(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"service": out})
}

func (h *Handler) GetMine(c *gin.Context) {
	out, err := h.service.GetMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"service": out})
}

func (h *Handler) CreateService(c *gin.Context) {
	var req CreateServiceRequest
	if !bind(c, &req) {
		return
	}
	svc, err := h.service.CreateService(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"service": svc})
}

func (h *Handler) UpdateService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateServiceRequest
	if !bind(c, &req) {
		return
	}
	svc, err := h.service.UpdateService(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"service": svc})
}

func (h *Handler) UpdateBusinessHours(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateBusinessHoursRequest
	if !bind(c, &req) {
		return
	}
	svc, err := h.service.UpdateBusinessHours(c.Request.Context(), middleware.UserID(c), id, req.BusinessHours)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"service": svc})
}

func (h *Handler) DeleteService(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteService(c.Request.Context(), middleware.UserID(c), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
