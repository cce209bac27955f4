package repository

import (
	"context"
	"strings"
	"time"

	"tapbook/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID                  int64      `gorm:"column:id;primaryKey"`
	Email               string     `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash        string     `gorm:"column:password_hash;not null"`
	Role                string     `gorm:"column:role;not null"`
	Name                string     `gorm:"column:name"`
	Phone               *string    `gorm:"column:phone"`
	MembershipPlan      *string    `gorm:"column:membership_plan"`
	MembershipStart     *time.Time `gorm:"column:membership_start"`
	MembershipExpiry    *time.Time `gorm:"column:membership_expiry"`
	MembershipCancelled bool       `gorm:"column:membership_cancelled;not null;default:false"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	var phone string
	if m.Phone != nil {
		phone = *m.Phone
	}

	u := &domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		Name:         m.Name,
		Phone:        phone,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.MembershipPlan != nil && *m.MembershipPlan != string(domain.PlanNone) {
		ms := &domain.Membership{
			Plan:      domain.MembershipPlan(*m.MembershipPlan),
			Cancelled: m.MembershipCancelled,
		}
		if m.MembershipStart != nil {
			ms.StartDate = m.MembershipStart.UTC()
		}
		if m.MembershipExpiry != nil {
			ms.ExpiryDate = m.MembershipExpiry.UTC()
		}
		u.Membership = ms
	}
	return u
}

func toUserModel(u *domain.User) userModel {
	email := strings.TrimSpace(strings.ToLower(u.Email))

	var phone *string
	if u.Phone != "" {
		v := u.Phone
		phone = &v
	}

	m := userModel{
		ID:           u.ID,
		Email:        email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Name:         u.Name,
		Phone:        phone,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.Membership != nil {
		plan := string(u.Membership.Plan)
		start := u.Membership.StartDate.UTC()
		expiry := u.Membership.ExpiryDate.UTC()
		m.MembershipPlan = &plan
		m.MembershipStart = &start
		m.MembershipExpiry = &expiry
		m.MembershipCancelled = u.Membership.Cancelled
	}
	return m
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return mapErr(tx.Error)
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&m)
	if tx.Error != nil {
		return nil, mapErr(tx.Error)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, mapErr(tx.Error)
	}
	return toDomainUser(m), nil
}

// UpdateMembership replaces the membership columns of a user. A nil membership clears them.
func (r *UserRepository) UpdateMembership(ctx context.Context, userID int64, ms *domain.Membership) error {
	updates := map[string]any{
		"membership_plan":      nil,
		"membership_start":     nil,
		"membership_expiry":    nil,
		"membership_cancelled": false,
		"updated_at":           time.Now().UTC(),
	}
	if ms != nil {
		updates["membership_plan"] = string(ms.Plan)
		updates["membership_start"] = ms.StartDate.UTC()
		updates["membership_expiry"] = ms.ExpiryDate.UTC()
		updates["membership_cancelled"] = ms.Cancelled
	}

	tx := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", userID).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
