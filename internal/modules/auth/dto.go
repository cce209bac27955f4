package auth

import "tapbook/internal/domain"

type RegisterRequest struct {
	Name     string `json:"name" binding:"required" validate:"required,min=2,max=255"`
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=50"`
	Password string `json:"password" binding:"required,min=6" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=customer provider"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserPublic struct {
	ID         int64              `json:"id"`
	Role       domain.UserRole    `json:"role"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	Phone      string             `json:"phone,omitempty"`
	Membership *domain.Membership `json:"membership,omitempty"`
}

type AuthResponse struct {
	User      UserPublic `json:"user"`
	Token     string     `json:"token"`
	ExpiresIn int64      `json:"expires_in,omitempty"`
}

func toPublic(u *domain.User) UserPublic {
	return UserPublic{
		ID:         u.ID,
		Role:       u.Role,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Membership: u.Membership,
	}
}
