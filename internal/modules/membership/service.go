package membership

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"tapbook/internal/domain"
	"tapbook/internal/pkg/apperr"
	"tapbook/internal/pkg/clock"
	"tapbook/internal/repository"
	"tapbook/internal/scheduling"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateMembership(ctx context.Context, userID int64, m *domain.Membership) error
}

// Service handles customer memberships. Discounts are applied at booking time from
// whatever membership is active then.
type Service struct {
	users UserRepository
	clock clock.Clock
	log   logrus.FieldLogger
}

func NewService(users UserRepository, clk clock.Clock, log logrus.FieldLogger) *Service {
	return &Service{users: users, clock: clk, log: log}
}

func term(plan domain.MembershipPlan) (years, months int, ok bool) {
	switch plan {
	case domain.PlanMonthly:
		return 0, 1, true
	case domain.PlanYearly:
		return 1, 0, true
	default:
		return 0, 0, false
	}
}

// Subscribe starts a plan now. Renewing the plan that is already active extends it from
// its current expiry instead.
func (s *Service) Subscribe(ctx context.Context, userID int64, plan domain.MembershipPlan) (*View, error) {
	years, months, ok := term(plan)
	if !ok {
		return nil, ErrInvalidPlan
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	m := &domain.Membership{Plan: plan, StartDate: now, ExpiryDate: now.AddDate(years, months, 0)}
	if cur := user.Membership; cur.Active(now) && cur.Plan == plan {
		m.StartDate = cur.StartDate
		m.ExpiryDate = cur.ExpiryDate.AddDate(years, months, 0)
	}

	if err := s.users.UpdateMembership(ctx, userID, m); err != nil {
		return nil, s.mapErr(err)
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "plan": plan, "expiry": m.ExpiryDate}).Info("membership subscribed")
	return s.view(m, now), nil
}

// Cancel stops the discount immediately. The expiry date is kept for the record.
func (s *Service) Cancel(ctx context.Context, userID int64) (*View, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	if !user.Membership.Active(now) {
		return nil, ErrNoMembership
	}

	m := *user.Membership
	m.Cancelled = true
	if err := s.users.UpdateMembership(ctx, userID, &m); err != nil {
		return nil, s.mapErr(err)
	}

	s.log.WithField("user_id", userID).Info("membership cancelled")
	return s.view(&m, now), nil
}

func (s *Service) Get(ctx context.Context, userID int64) (*View, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(user.Membership, s.clock.Now()), nil
}

func (s *Service) view(m *domain.Membership, now time.Time) *View {
	return &View{Membership: m, Active: m.Active(now), DiscountRate: scheduling.DiscountRate(m, now)}
}

func (s *Service) load(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return user, nil
}

func (s *Service) mapErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return apperr.Storage(err)
}
