package booking

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tapbook/internal/domain"
	"tapbook/internal/lock"
	"tapbook/internal/pkg/apperr"
	"tapbook/internal/pkg/clock"
	"tapbook/internal/repository"
	"tapbook/internal/scheduling"
)

type Deps struct {
	Appointments AppointmentStore
	Services     ServiceStore
	Users        UserStore
	Ratings      RatingReader
	Notifier     Notifier
	Locker       lock.Locker
	Clock        clock.Clock
	Location     *time.Location
	Metrics      Recorder
	Log          logrus.FieldLogger
}

type Service struct {
	appointments AppointmentStore
	services     ServiceStore
	users        UserStore
	ratings      RatingReader
	notifier     Notifier
	locker       lock.Locker
	clock        clock.Clock
	loc          *time.Location
	metrics      Recorder
	log          logrus.FieldLogger
}

func NewService(d Deps) *Service {
	s := &Service{
		appointments: d.Appointments,
		services:     d.Services,
		users:        d.Users,
		ratings:      d.Ratings,
		notifier:     d.Notifier,
		locker:       d.Locker,
		clock:        d.Clock,
		loc:          d.Location,
		metrics:      d.Metrics,
		log:          d.Log,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// Book reserves a pending appointment for customerID. Every rejection is returned as an
// apperr carrying the reason name the client sees.
func (s *Service) Book(ctx context.Context, customerID int64, req BookRequest) (*BookingResult, error) {
	res, err := s.book(ctx, customerID, req)
	if err != nil {
		s.metrics.BookingRejected(reasonOf(err))
		return nil, err
	}
	s.metrics.BookingAccepted()
	return res, nil
}

func (s *Service) book(ctx context.Context, customerID int64, req BookRequest) (*BookingResult, error) {
	if req.ServiceID <= 0 || req.Start.IsZero() {
		return nil, ErrInvalidInput
	}
	start := req.Start.UTC().Truncate(time.Second)
	if !start.After(s.clock.Now()) {
		return nil, ErrPastDate
	}

	q, err := s.quote(ctx, customerID, req.ServiceID, start)
	if err != nil {
		return nil, err
	}

	a := &domain.Appointment{
		CustomerID:    customerID,
		ServiceID:     q.service.ID,
		ProviderID:    q.service.ProviderID,
		Slot:          q.slot,
		ScheduledAt:   q.slot.Start,
		Status:        domain.StatusPending,
		Payment:       q.payment,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Notes:         strings.TrimSpace(req.Notes),
	}
	if a.CustomerName == "" {
		a.CustomerName = q.customer.Name
	}
	if a.CustomerPhone == "" {
		a.CustomerPhone = q.customer.Phone
	}

	if err := s.reserve(ctx, a, s.appointments.CreateIfFree); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"appointment_id": a.ID,
		"service_id":     a.ServiceID,
		"customer_id":    customerID,
		"start":          a.Slot.Start,
	}).Info("appointment booked")

	s.notifier.Notify(ctx, a.ProviderID, domain.NotifBookingCreated, map[string]any{
		"appointment_id": a.ID,
		"service_id":     a.ServiceID,
		"start":          a.Slot.Start,
	})

	return s.result(ctx, a, q.service), nil
}

// Preview prices a prospective booking without reserving anything.
func (s *Service) Preview(ctx context.Context, customerID, serviceID int64, start time.Time) (*Quote, error) {
	if serviceID <= 0 || start.IsZero() {
		return nil, ErrInvalidInput
	}
	q, err := s.quote(ctx, customerID, serviceID, start.UTC().Truncate(time.Second))
	if err != nil {
		return nil, err
	}
	return &Quote{ServiceID: q.service.ID, Slot: q.slot, Payment: q.payment}, nil
}

type quote struct {
	service  *domain.Service
	customer *domain.User
	slot     domain.Slot
	payment  domain.Payment
}

// quote loads the service and customer, fits the slot into business hours and prices it.
func (s *Service) quote(ctx context.Context, customerID, serviceID int64, start time.Time) (*quote, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, apperr.Storage(err)
	}

	slot := scheduling.NewSlot(start, svc.Duration())
	if err := scheduling.CheckHours(svc.BusinessHours, slot, s.loc); err != nil {
		return nil, err
	}

	customer, err := s.users.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Storage(err)
	}

	return &quote{
		service:  svc,
		customer: customer,
		slot:     slot,
		payment:  scheduling.Price(svc.Price, customer.Membership, s.clock.Now()),
	}, nil
}

// reserve runs the conflict checks and the write under the provider and customer locks.
// The write re-checks both scopes in its own transaction.
func (s *Service) reserve(ctx context.Context, a *domain.Appointment, write func(context.Context, *domain.Appointment) error) error {
	release, err := s.locker.Acquire(ctx, lock.ProviderKey(a.ProviderID), lock.CustomerKey(a.CustomerID))
	if err != nil {
		return lockErr(err)
	}
	defer release()

	if err := s.checkConflicts(ctx, a); err != nil {
		return err
	}
	return storeErr(write(ctx, a))
}

func (s *Service) checkConflicts(ctx context.Context, a *domain.Appointment) error {
	busy, err := s.appointments.FindOverlapping(ctx, repository.ScopeProvider, a.ProviderID, a.Slot.Start, a.Slot.End, a.ID)
	if err != nil {
		return apperr.Storage(err)
	}
	if scheduling.HasConflict(a.Slot, busy, a.ID) {
		return ErrSlotTaken
	}

	busy, err = s.appointments.FindOverlapping(ctx, repository.ScopeCustomer, a.CustomerID, a.Slot.Start, a.Slot.End, a.ID)
	if err != nil {
		return apperr.Storage(err)
	}
	if scheduling.HasConflict(a.Slot, busy, a.ID) {
		return ErrDoubleBooked
	}
	return nil
}

// result enriches an accepted booking. Enrichment failures only cost the extra fields.
func (s *Service) result(ctx context.Context, a *domain.Appointment, svc *domain.Service) *BookingResult {
	res := &BookingResult{
		Status:             StatusAccepted,
		AppointmentID:      a.ID,
		ServiceCost:        a.Payment.ServiceCost,
		MembershipDiscount: a.Payment.MembershipDiscount,
		TotalDue:           a.Payment.TotalDue,
		Appointment:        a,
		ServiceName:        svc.Name,
	}
	if s.ratings != nil {
		if r, err := s.ratings.RatingForService(ctx, svc.ID); err == nil {
			res.AverageRating = r.Average
			res.ReviewCount = r.Count
		} else {
			s.log.WithError(err).WithField("service_id", svc.ID).Warn("rating lookup failed")
		}
	}
	if p, err := s.users.GetByID(ctx, svc.ProviderID); err == nil {
		res.ProviderName = p.Name
	} else {
		s.log.WithError(err).WithField("provider_id", svc.ProviderID).Warn("provider lookup failed")
	}
	return res
}

// Reschedule moves a customer's pending or confirmed appointment to newStart. The status
// is kept and the payment is re-priced against the customer's current membership.
func (s *Service) Reschedule(ctx context.Context, customerID, appointmentID int64, newStart time.Time) (*domain.Appointment, error) {
	a, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.CustomerID != customerID {
		return nil, scheduling.ErrForbidden
	}
	if !scheduling.CanReschedule(a.Status) {
		return nil, scheduling.ErrInvalidTransition
	}
	if newStart.IsZero() {
		return nil, ErrInvalidInput
	}
	start := newStart.UTC().Truncate(time.Second)
	if !start.After(s.clock.Now()) {
		return nil, ErrPastDate
	}

	q, err := s.quote(ctx, customerID, a.ServiceID, start)
	if err != nil {
		return nil, err
	}
	a.Slot = q.slot
	a.ScheduledAt = q.slot.Start
	a.Payment = q.payment

	if err := s.reserve(ctx, a, s.appointments.UpdateSlotIfFree); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, a.ProviderID, domain.NotifBookingRescheduled, map[string]any{
		"appointment_id": a.ID,
		"start":          a.Slot.Start,
	})
	return a, nil
}

func (s *Service) Confirm(ctx context.Context, providerID, appointmentID int64) (*domain.Appointment, error) {
	a, err := s.transition(ctx, appointmentID, scheduling.ActionConfirm, scheduling.Provider(providerID), "")
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, a.CustomerID, domain.NotifBookingConfirmed, map[string]any{
		"appointment_id": a.ID,
		"start":          a.Slot.Start,
	})
	return a, nil
}

func (s *Service) Decline(ctx context.Context, providerID, appointmentID int64, note string) (*domain.Appointment, error) {
	a, err := s.transition(ctx, appointmentID, scheduling.ActionDecline, scheduling.Provider(providerID), note)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, a.CustomerID, domain.NotifBookingDeclined, map[string]any{
		"appointment_id": a.ID,
		"start":          a.Slot.Start,
		"note":           a.CancellationNote,
	})
	return a, nil
}

// Cancel is the customer withdrawing their own appointment.
func (s *Service) Cancel(ctx context.Context, customerID, appointmentID int64, note string) (*domain.Appointment, error) {
	a, err := s.transition(ctx, appointmentID, scheduling.ActionCancel, scheduling.Customer(customerID), note)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, a.ProviderID, domain.NotifBookingCancelled, map[string]any{
		"appointment_id": a.ID,
		"start":          a.Slot.Start,
		"note":           a.CancellationNote,
	})
	return a, nil
}

func (s *Service) transition(ctx context.Context, id int64, action scheduling.Action, actor scheduling.Actor, note string) (*domain.Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	to, err := scheduling.Transition(a, action, actor, note, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.appointments.UpdateStatus(ctx, a.ID, []domain.AppointmentStatus{a.Status}, to, note); err != nil {
		return nil, storeErr(err)
	}

	s.log.WithFields(logrus.Fields{
		"appointment_id": a.ID,
		"from":           a.Status,
		"to":             to,
		"actor":          actor.Kind,
	}).Info("appointment status changed")
	s.metrics.Transition(string(to))

	a.Status = to
	if note != "" {
		a.CancellationNote = note
	}
	return a, nil
}

// CancelRange cancels every pending or confirmed appointment of the provider starting in
// [from, to) and tells each customer. Appointments that change status meanwhile are skipped.
func (s *Service) CancelRange(ctx context.Context, providerID int64, from, to time.Time) (*CancelRangeResult, error) {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return nil, ErrInvalidRange
	}

	list, err := s.appointments.ListBlockingStartingIn(ctx, providerID, from, to)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	out := &CancelRangeResult{AppointmentIDs: make([]int64, 0, len(list))}
	now := s.clock.Now()
	for i := range list {
		a := &list[i]
		next, err := scheduling.Transition(a, scheduling.ActionProviderCancel, scheduling.Provider(providerID), "", now)
		if err != nil {
			return nil, err
		}
		err = s.appointments.UpdateStatus(ctx, a.ID, []domain.AppointmentStatus{a.Status}, next, scheduling.ProviderCancelReason)
		if errors.Is(err, repository.ErrStatusChanged) {
			continue
		}
		if err != nil {
			return nil, apperr.Storage(err)
		}
		s.metrics.Transition(string(next))
		out.AppointmentIDs = append(out.AppointmentIDs, a.ID)

		s.notifier.Notify(ctx, a.CustomerID, domain.NotifBookingCancelled, map[string]any{
			"appointment_id": a.ID,
			"start":          a.Slot.Start,
			"note":           scheduling.ProviderCancelReason,
		})
	}
	out.Cancelled = len(out.AppointmentIDs)

	s.log.WithFields(logrus.Fields{
		"provider_id": providerID,
		"from":        from,
		"to":          to,
		"cancelled":   out.Cancelled,
	}).Info("provider cancelled date range")
	return out, nil
}

// Get returns the appointment when viewerID is its customer or provider.
func (s *Service) Get(ctx context.Context, viewerID, appointmentID int64) (*domain.Appointment, error) {
	a, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.CustomerID != viewerID && a.ProviderID != viewerID {
		return nil, scheduling.ErrForbidden
	}
	return a, nil
}

func (s *Service) ListForCustomer(ctx context.Context, customerID int64, f ListFilter) ([]domain.Appointment, error) {
	rf, err := toRepoFilter(f)
	if err != nil {
		return nil, err
	}
	list, err := s.appointments.ListForCustomer(ctx, customerID, rf)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return list, nil
}

func (s *Service) ListForProvider(ctx context.Context, providerID int64, f ListFilter) ([]domain.Appointment, error) {
	rf, err := toRepoFilter(f)
	if err != nil {
		return nil, err
	}
	list, err := s.appointments.ListForProvider(ctx, providerID, rf)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return list, nil
}

func toRepoFilter(f ListFilter) (repository.AppointmentFilter, error) {
	status := domain.AppointmentStatus(strings.ToLower(strings.TrimSpace(f.Status)))
	if status != "" && !status.Valid() {
		return repository.AppointmentFilter{}, ErrInvalidInput
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.To.After(f.From) {
		return repository.AppointmentFilter{}, ErrInvalidRange
	}
	return repository.AppointmentFilter{
		Status: status,
		From:   f.From,
		To:     f.To,
		Limit:  f.Limit,
		Offset: f.Offset,
	}, nil
}

func (s *Service) load(ctx context.Context, id int64) (*domain.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, apperr.Storage(err)
	}
	return a, nil
}

// Availability describes one calendar day of a service in the operating timezone: its
// opening window, the slots already held and the free gaps between them.
func (s *Service) Availability(ctx context.Context, serviceID int64, dateStr string) (*AvailabilityResponse, error) {
	day, err := time.ParseInLocation("2006-01-02", dateStr, s.loc)
	if err != nil {
		return nil, ErrInvalidInput
	}

	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, apperr.Storage(err)
	}

	out := &AvailabilityResponse{
		ServiceID:   serviceID,
		Date:        dateStr,
		BookedSlots: []BookedSlot{},
		FreeSlots:   []TimeSlot{},
	}
	w, ok := scheduling.Resolve(svc.BusinessHours, day)
	if !ok {
		return out, nil
	}
	out.Open = true
	out.WorkingHours = &w

	open, close := w.Bounds(day, s.loc)
	held, err := s.appointments.ListBlockingStartingIn(ctx, svc.ProviderID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, apperr.Storage(err)
	}

	busy := make([]TimeSlot, 0, len(held))
	for _, a := range held {
		out.BookedSlots = append(out.BookedSlots, BookedSlot{
			Start:  a.Slot.Start.In(s.loc).Format("15:04"),
			End:    a.Slot.End.In(s.loc).Format("15:04"),
			Status: a.Status,
		})
		busy = append(busy, TimeSlot{Start: a.Slot.Start.In(s.loc), End: a.Slot.End.In(s.loc)})
	}
	out.FreeSlots = subtractBusy(open, close, busy)
	return out, nil
}

// subtractBusy returns the gaps of [open, close) not covered by busy.
func subtractBusy(open, close time.Time, busy []TimeSlot) []TimeSlot {
	if len(busy) == 0 {
		return []TimeSlot{{Start: open, End: close}}
	}

	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	merged := make([]TimeSlot, 0, len(busy))
	for _, b := range busy {
		if !b.End.After(open) || !b.Start.Before(close) {
			continue
		}
		if b.Start.Before(open) {
			b.Start = open
		}
		if b.End.After(close) {
			b.End = close
		}
		if len(merged) > 0 && !b.Start.After(merged[len(merged)-1].End) {
			if b.End.After(merged[len(merged)-1].End) {
				merged[len(merged)-1].End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}

	cur := open
	out := make([]TimeSlot, 0, len(merged)+1)
	for _, b := range merged {
		if b.Start.After(cur) {
			out = append(out, TimeSlot{Start: cur, End: b.Start})
		}
		if b.End.After(cur) {
			cur = b.End
		}
	}
	if cur.Before(close) {
		out = append(out, TimeSlot{Start: cur, End: close})
	}
	return out
}
