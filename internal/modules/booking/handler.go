package booking

import (
	"context"
	"net/http"
	"strconv"
	"time"

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

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/services/:id/availability", h.GetAvailability)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	appointments := protected.Group("/appointments")
	{
		appointments.POST("", middleware.CustomerOnly(), h.CreateAppointment)
		appointments.POST("/preview", middleware.CustomerOnly(), h.Preview)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/reschedule", middleware.CustomerOnly(), h.Reschedule)
		appointments.PATCH("/:id/cancel", middleware.CustomerOnly(), h.Cancel)
		appointments.PATCH("/:id/confirm", middleware.ProviderOnly(), h.Confirm)
		appointments.PATCH("/:id/decline", middleware.ProviderOnly(), h.Decline)
	}

	protected.GET("/me/appointments", middleware.CustomerOnly(), h.ListMine)

	provider := protected.Group("/provider", middleware.ProviderOnly())
	{
		provider.GET("/appointments", h.ListForProvider)
		provider.POST("/appointments/cancel-range", h.CancelRange)
	}
}

// bind decodes and validates the JSON body, writing the 400 itself on failure.
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

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid appointment ID")
		return 0, false
	}
	return id, true
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !bind(c, &req) {
		return
	}
	start, err := parseTime(req.Start)
	if err != nil {
		response.Fail(c, ErrInvalidInput)
		return
	}

	res, err := h.service.Book(c.Request.Context(), middleware.UserID(c), BookRequest{
		ServiceID:     req.ServiceID,
		Start:         start,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

func (h *Handler) Preview(c *gin.Context) {
	var req PreviewRequest
	if !bind(c, &req) {
		return
	}
	start, err := parseTime(req.Start)
	if err != nil {
		response.Fail(c, ErrInvalidInput)
		return
	}

	q, err := h.service.Preview(c.Request.Context(), middleware.UserID(c), req.ServiceID, start)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointment": a})
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !bind(c, &req) {
		return
	}
	start, err := parseTime(req.Start)
	if err != nil {
		response.Fail(c, ErrInvalidInput)
		return
	}

	a, err := h.service.Reschedule(c.Request.Context(), middleware.UserID(c), id, start)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointment": a})
}

func (h *Handler) Confirm(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := h.service.Confirm(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointment": a})
}

func (h *Handler) Decline(c *gin.Context) {
	h.withNote(c, h.service.Decline)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.withNote(c, h.service.Cancel)
}

func (h *Handler) withNote(c *gin.Context, act func(ctx context.Context, actorID, appointmentID int64, note string) (*domain.Appointment, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req NoteRequest
	if !bind(c, &req) {
		return
	}
	a, err := act(c.Request.Context(), middleware.UserID(c), id, req.Note)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointment": a})
}

func listFilter(c *gin.Context) (ListFilter, bool) {
	f := ListFilter{Status: c.Query("status")}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	for key, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		if v := c.Query(key); v != "" {
			t, err := parseTime(v)
			if err != nil {
				response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid "+key+" time, expected RFC3339")
				return f, false
			}
			*dst = t
		}
	}
	return f, true
}

func (h *Handler) ListMine(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, err := h.service.ListForCustomer(c.Request.Context(), middleware.UserID(c), f)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointments": list})
}

func (h *Handler) ListForProvider(c *gin.Context) {
	f, ok := listFilter(c)
	if !ok {
		return
	}
	list, err := h.service.ListForProvider(c.Request.Context(), middleware.UserID(c), f)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"appointments": list})
}

func (h *Handler) CancelRange(c *gin.Context) {
	var req CancelRangeRequest
	if !bind(c, &req) {
		return
	}
	from, err1 := parseTime(req.From)
	to, err2 := parseTime(req.To)
	if err1 != nil || err2 != nil {
		response.Fail(c, ErrInvalidRange)
		return
	}

	res, err := h.service.CancelRange(c.Request.Context(), middleware.UserID(c), from, to)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) GetAvailability(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID")
		return
	}
	date := c.Query("date")
	if date == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "date query parameter is required (YYYY-MM-DD)")
		return
	}

	out, err := h.service.Availability(c.Request.Context(), id, date)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}
