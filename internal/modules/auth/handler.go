package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tapbook/internal/middleware"
	"tapbook/internal/pkg/response"
	"tapbook/internal/pkg/validator"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service  *Service
	tokenTTL time.Duration
}

func NewHandler(service *Service, tokenTTL time.Duration) *Handler {
	return &Handler{service: service, tokenTTL: tokenTTL}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.GET("/users/me", h.GetMe)
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	user, token, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, AuthResponse{
		User:      toPublic(user),
		Token:     token,
		ExpiresIn: int64(h.tokenTTL.Seconds()),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	user, token, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, AuthResponse{
		User:      toPublic(user),
		Token:     token,
		ExpiresIn: int64(h.tokenTTL.Seconds()),
	})
}

func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": toPublic(user)})
}
