package membership

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tapbook/internal/domain"
	"tapbook/internal/middleware"
	"tapbook/internal/pkg/response"
	"tapbook/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the customer-only membership routes.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/me/membership", middleware.CustomerOnly())
	{
		g.GET("", h.Get)
		g.POST("", h.Subscribe)
		g.POST("/cancel", h.Cancel)
	}
}

func (h *Handler) Get(c *gin.Context) {
	v, err := h.service.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	v, err := h.service.Subscribe(c.Request.Context(), middleware.UserID(c), domain.MembershipPlan(req.Plan))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

func (h *Handler) Cancel(c *gin.Context) {
	v, err := h.service.Cancel(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}
