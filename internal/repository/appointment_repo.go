package repository

import (
	"context"
	"time"

	"tapbook/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Scope selects which side of an appointment an overlap query looks at.
type Scope string

const (
	ScopeProvider Scope = "provider_id"
	ScopeCustomer Scope = "customer_id"
)

// advisory lock classes, first key of pg_advisory_xact_lock(int, int)
const (
	lockClassProvider = 1
	lockClassCustomer = 2
)

type appointmentModel struct {
	ID                 int64           `gorm:"column:id;primaryKey"`
	CustomerID         int64           `gorm:"column:customer_id;not null;index:idx_appointments_customer_start,priority:1"`
	ServiceID          int64           `gorm:"column:service_id;not null;index"`
	ProviderID         int64           `gorm:"column:provider_id;not null;index:idx_appointments_provider_start,priority:1"`
	StartTime          time.Time       `gorm:"column:start_time;not null;index:idx_appointments_customer_start,priority:2;index:idx_appointments_provider_start,priority:2"`
	EndTime            time.Time       `gorm:"column:end_time;not null"`
	Status             string          `gorm:"column:status;not null;index"`
	ServiceCost        decimal.Decimal `gorm:"column:service_cost;type:numeric(12,2);not null"`
	MembershipDiscount decimal.Decimal `gorm:"column:membership_discount;type:numeric(12,2);not null"`
	TotalDue           decimal.Decimal `gorm:"column:total_due;type:numeric(12,2);not null"`
	CancellationNote   *string         `gorm:"column:cancellation_note"`
	Reminded           bool            `gorm:"column:reminded;not null;default:false"`
	CustomerName       *string         `gorm:"column:customer_name"`
	CustomerPhone      *string         `gorm:"column:customer_phone"`
	Notes              *string         `gorm:"column:notes"`
	CreatedAt          time.Time       `gorm:"column:created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at"`
}

func (appointmentModel) TableName() string { return "appointments" }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toDomainAppointment(m appointmentModel) *domain.Appointment {
	start := m.StartTime.UTC()
	return &domain.Appointment{
		ID:          m.ID,
		CustomerID:  m.CustomerID,
		ServiceID:   m.ServiceID,
		ProviderID:  m.ProviderID,
		Slot:        domain.Slot{Start: start, End: m.EndTime.UTC()},
		ScheduledAt: start,
		Status:      domain.AppointmentStatus(m.Status),
		Payment: domain.Payment{
			ServiceCost:        m.ServiceCost,
			MembershipDiscount: m.MembershipDiscount,
			TotalDue:           m.TotalDue,
		},
		CancellationNote: deref(m.CancellationNote),
		Reminded:         m.Reminded,
		CustomerName:     deref(m.CustomerName),
		CustomerPhone:    deref(m.CustomerPhone),
		Notes:            deref(m.Notes),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toAppointmentModel(a *domain.Appointment) appointmentModel {
	return appointmentModel{
		ID:                 a.ID,
		CustomerID:         a.CustomerID,
		ServiceID:          a.ServiceID,
		ProviderID:         a.ProviderID,
		StartTime:          a.Slot.Start.UTC(),
		EndTime:            a.Slot.End.UTC(),
		Status:             string(a.Status),
		ServiceCost:        a.Payment.ServiceCost,
		MembershipDiscount: a.Payment.MembershipDiscount,
		TotalDue:           a.Payment.TotalDue,
		CancellationNote:   optional(a.CancellationNote),
		Reminded:           a.Reminded,
		CustomerName:       optional(a.CustomerName),
		CustomerPhone:      optional(a.CustomerPhone),
		Notes:              optional(a.Notes),
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

func blockingStatuses() []string {
	out := make([]string, 0, len(domain.BlockingStatuses))
	for _, s := range domain.BlockingStatuses {
		out = append(out, string(s))
	}
	return out
}

func overlapQuery(db *gorm.DB, scope Scope, ownerID int64, start, end time.Time, excludeID int64) *gorm.DB {
	q := db.Model(&appointmentModel{}).
		Where(string(scope)+" = ?", ownerID).
		Where("status IN ?", blockingStatuses()).
		Where("start_time < ? AND end_time > ?", end.UTC(), start.UTC())
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	return q
}

// FindOverlapping returns the pending or confirmed appointments of ownerID, on the given
// side, whose slot intersects [start, end).
func (r *AppointmentRepository) FindOverlapping(ctx context.Context, scope Scope, ownerID int64, start, end time.Time, excludeID int64) ([]domain.Appointment, error) {
	var rows []appointmentModel
	err := overlapQuery(r.db.WithContext(ctx), scope, ownerID, start, end, excludeID).
		Order("start_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Appointment, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainAppointment(m))
	}
	return out, nil
}

// lockAndRecheck serialises writers on the same provider and customer and re-runs both
// overlap queries inside tx. Locks are always taken provider first.
func lockAndRecheck(tx *gorm.DB, a *domain.Appointment) error {
	if isPostgres(tx) {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", lockClassProvider, a.ProviderID).Error; err != nil {
			return err
		}
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", lockClassCustomer, a.CustomerID).Error; err != nil {
			return err
		}
	}

	var n int64
	if err := overlapQuery(tx, ScopeProvider, a.ProviderID, a.Slot.Start, a.Slot.End, a.ID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrProviderConflict
	}
	if err := overlapQuery(tx, ScopeCustomer, a.CustomerID, a.Slot.Start, a.Slot.End, a.ID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrCustomerConflict
	}
	return nil
}

// CreateIfFree inserts a when neither the provider nor the customer holds an overlapping
// blocking appointment. Check and insert commit together.
func (r *AppointmentRepository) CreateIfFree(ctx context.Context, a *domain.Appointment) error {
	m := toAppointmentModel(a)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockAndRecheck(tx, a); err != nil {
			return err
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return err
	}
	*a = *toDomainAppointment(m)
	return nil
}

// UpdateSlotIfFree moves a to its new slot and payment snapshot when the new slot is free
// on both sides and a is still pending or confirmed. The reminder flag is reset.
func (r *AppointmentRepository) UpdateSlotIfFree(ctx context.Context, a *domain.Appointment) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockAndRecheck(tx, a); err != nil {
			return err
		}
		res := tx.Model(&appointmentModel{}).
			Where("id = ? AND status IN ?", a.ID, blockingStatuses()).
			Updates(map[string]any{
				"start_time":          a.Slot.Start.UTC(),
				"end_time":            a.Slot.End.UTC(),
				"service_cost":        a.Payment.ServiceCost,
				"membership_discount": a.Payment.MembershipDiscount,
				"total_due":           a.Payment.TotalDue,
				"reminded":            false,
				"updated_at":          now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusChanged
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.Reminded = false
	a.ScheduledAt = a.Slot.Start
	a.UpdatedAt = now
	return nil
}

// UpdateStatus moves appointment id to status to, but only while it is still in one of
// from. note replaces the cancellation note when non-empty.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id int64, from []domain.AppointmentStatus, to domain.AppointmentStatus, note string) error {
	fromStr := make([]string, 0, len(from))
	for _, s := range from {
		fromStr = append(fromStr, string(s))
	}
	updates := map[string]any{
		"status":     string(to),
		"updated_at": time.Now().UTC(),
	}
	if note != "" {
		updates["cancellation_note"] = note
	}

	res := r.db.WithContext(ctx).Model(&appointmentModel{}).
		Where("id = ? AND status IN ?", id, fromStr).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	var m appointmentModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, mapErr(tx.Error)
	}
	return toDomainAppointment(m), nil
}

type AppointmentFilter struct {
	Status domain.AppointmentStatus
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

func (r *AppointmentRepository) list(ctx context.Context, column string, ownerID int64, f AppointmentFilter) ([]domain.Appointment, error) {
	q := r.db.WithContext(ctx).Model(&appointmentModel{}).Where(column+" = ?", ownerID)
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		q = q.Where("start_time >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("start_time < ?", f.To.UTC())
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows []appointmentModel
	if err := q.Order("start_time ASC").Limit(limit).Offset(f.Offset).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Appointment, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainAppointment(m))
	}
	return out, nil
}

func (r *AppointmentRepository) ListForCustomer(ctx context.Context, customerID int64, f AppointmentFilter) ([]domain.Appointment, error) {
	return r.list(ctx, "customer_id", customerID, f)
}

func (r *AppointmentRepository) ListForProvider(ctx context.Context, providerID int64, f AppointmentFilter) ([]domain.Appointment, error) {
	return r.list(ctx, "provider_id", providerID, f)
}

// ListBlockingStartingIn returns the provider's pending or confirmed appointments that
// start in [from, to).
func (r *AppointmentRepository) ListBlockingStartingIn(ctx context.Context, providerID int64, from, to time.Time) ([]domain.Appointment, error) {
	var rows []appointmentModel
	err := r.db.WithContext(ctx).
		Where("provider_id = ? AND status IN ?", providerID, blockingStatuses()).
		Where("start_time >= ? AND start_time < ?", from.UTC(), to.UTC()).
		Order("start_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Appointment, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainAppointment(m))
	}
	return out, nil
}

// CompletePastDue marks every confirmed appointment whose slot ended at or before now as
// completed and returns them. Rows that changed status meanwhile are left alone.
func (r *AppointmentRepository) CompletePastDue(ctx context.Context, now time.Time) ([]domain.Appointment, error) {
	var rows []appointmentModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND end_time <= ?", string(domain.StatusConfirmed), now.UTC()).
			Order("id ASC").
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(rows))
		for _, m := range rows {
			ids = append(ids, m.ID)
		}
		return tx.Model(&appointmentModel{}).
			Where("id IN ? AND status = ?", ids, string(domain.StatusConfirmed)).
			Updates(map[string]any{
				"status":     string(domain.StatusCompleted),
				"updated_at": now.UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Appointment, 0, len(rows))
	for _, m := range rows {
		a := toDomainAppointment(m)
		a.Status = domain.StatusCompleted
		out = append(out, *a)
	}
	return out, nil
}

// DueForReminder returns confirmed, not yet reminded appointments starting in (now, until].
func (r *AppointmentRepository) DueForReminder(ctx context.Context, now, until time.Time) ([]domain.Appointment, error) {
	var rows []appointmentModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminded = ?", string(domain.StatusConfirmed), false).
		Where("start_time > ? AND start_time <= ?", now.UTC(), until.UTC()).
		Order("start_time ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Appointment, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainAppointment(m))
	}
	return out, nil
}

// MarkReminded flips the reminder flag. ok is false when another sweep got there first.
func (r *AppointmentRepository) MarkReminded(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&appointmentModel{}).
		Where("id = ? AND reminded = ? AND status = ?", id, false, string(domain.StatusConfirmed)).
		Updates(map[string]any{"reminded": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
