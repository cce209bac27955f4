package review

import "tapbook/internal/domain"

type CreateReviewRequest struct {
	AppointmentID int64  `json:"appointment_id" binding:"required" validate:"required,gt=0"`
	Rating        int    `json:"rating" binding:"required" validate:"required,min=1,max=5"`
	Comment       string `json:"comment" validate:"max=2000"`
}

type ListResponse struct {
	Reviews []domain.Review      `json:"reviews"`
	Rating  domain.RatingSummary `json:"rating"`
}
