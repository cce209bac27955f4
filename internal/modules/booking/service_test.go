package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tapbook/internal/database"
	"tapbook/internal/domain"
	"tapbook/internal/lock"
	"tapbook/internal/logging"
	"tapbook/internal/pkg/apperr"
	"tapbook/internal/pkg/clock"
	"tapbook/internal/repository"
	"tapbook/internal/scheduling"
)

// Friday; the fixtures book the following Monday.
var now = time.Date(2026, 10, 30, 12, 0, 0, 0, time.UTC)

func monday(hour, minute int) time.Time {
	return time.Date(2026, 11, 2, hour, minute, 0, 0, time.UTC)
}

type sentNotification struct {
	UserID  int64
	Kind    domain.NotificationKind
	Payload map[string]any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID int64, kind domain.NotificationKind, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Payload: payload})
}

func (n *recordingNotifier) kinds(userID int64) []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.NotificationKind
	for _, s := range n.sent {
		if s.UserID == userID {
			out = append(out, s.Kind)
		}
	}
	return out
}

type recordingMetrics struct {
	mu          sync.Mutex
	accepted    int
	rejected    []string
	transitions []string
}

func (m *recordingMetrics) BookingAccepted() {
	m.mu.Lock()
	m.accepted++
	m.mu.Unlock()
}

func (m *recordingMetrics) BookingRejected(reason string) {
	m.mu.Lock()
	m.rejected = append(m.rejected, reason)
	m.mu.Unlock()
}

func (m *recordingMetrics) Transition(status string) {
	m.mu.Lock()
	m.transitions = append(m.transitions, status)
	m.mu.Unlock()
}

type fixture struct {
	svc          *Service
	clock        *clock.Fixed
	notifier     *recordingNotifier
	metrics      *recordingMetrics
	users        *repository.UserRepository
	services     *repository.ServiceRepository
	appointments *repository.AppointmentRepository
	reviews      *repository.ReviewRepository
	provider     *domain.User
	customer     *domain.User
	service      *domain.Service
}

func weekdays(from, to domain.ClockTime) domain.BusinessHours {
	var h domain.BusinessHours
	for d := time.Monday; d <= time.Friday; d++ {
		h[d] = domain.DayHours{Open: true, From: from, To: to}
	}
	return h
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	f := &fixture{
		clock:        clock.NewFixed(now),
		notifier:     &recordingNotifier{},
		metrics:      &recordingMetrics{},
		users:        repository.NewUserRepository(db),
		services:     repository.NewServiceRepository(db),
		appointments: repository.NewAppointmentRepository(db),
		reviews:      repository.NewReviewRepository(db),
	}
	ctx := context.Background()

	f.provider = &domain.User{Name: "Dana Barber", Email: "dana@example.com", PasswordHash: "x", Role: domain.RoleProvider}
	require.NoError(t, f.users.Create(ctx, f.provider))
	f.customer = &domain.User{Name: "Sam Client", Email: "sam@example.com", PasswordHash: "x", Role: domain.RoleCustomer, Phone: "+100"}
	require.NoError(t, f.users.Create(ctx, f.customer))

	f.service = &domain.Service{
		ProviderID:      f.provider.ID,
		Name:            "Haircut",
		Category:        "hair",
		Price:           decimal.RequireFromString("100.00"),
		DurationMinutes: 60,
		Address:         "1 Main St",
		BusinessHours:   weekdays(domain.NewClockTime(9, 0), domain.NewClockTime(17, 0)),
	}
	require.NoError(t, f.services.Create(ctx, f.service))

	f.svc = NewService(Deps{
		Appointments: f.appointments,
		Services:     f.services,
		Users:        f.users,
		Ratings:      f.reviews,
		Notifier:     f.notifier,
		Locker:       lock.NewLocal(),
		Clock:        f.clock,
		Location:     time.UTC,
		Metrics:      f.metrics,
		Log:          logging.Discard(),
	})
	return f
}

func (f *fixture) newCustomer(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{Name: email, Email: email, PasswordHash: "x", Role: domain.RoleCustomer}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) book(t *testing.T, customerID int64, start time.Time) *BookingResult {
	t.Helper()
	res, err := f.svc.Book(context.Background(), customerID, BookRequest{ServiceID: f.service.ID, Start: start})
	require.NoError(t, err)
	return res
}

func TestBook_Accepted(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Book(context.Background(), f.customer.ID, BookRequest{
		ServiceID: f.service.ID,
		Start:     monday(10, 0),
		Notes:     "  first visit ",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, res.Status)
	assert.NotZero(t, res.AppointmentID)
	assert.Equal(t, "100", res.ServiceCost.String())
	assert.True(t, res.MembershipDiscount.IsZero())
	assert.Equal(t, "100", res.TotalDue.String())
	assert.Equal(t, "Dana Barber", res.ProviderName)
	assert.Equal(t, "Haircut", res.ServiceName)

	a := res.Appointment
	assert.Equal(t, domain.StatusPending, a.Status)
	assert.Equal(t, f.provider.ID, a.ProviderID)
	assert.Equal(t, monday(11, 0), a.Slot.End)
	assert.Equal(t, "Sam Client", a.CustomerName, "profile name is the default")
	assert.Equal(t, "+100", a.CustomerPhone)
	assert.Equal(t, "first visit", a.Notes)

	assert.Equal(t, []domain.NotificationKind{domain.NotifBookingCreated}, f.notifier.kinds(f.provider.ID))
	assert.Equal(t, 1, f.metrics.accepted)
}

func TestBook_MembershipDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.UpdateMembership(ctx, f.customer.ID, &domain.Membership{
		Plan:       domain.PlanYearly,
		StartDate:  now.AddDate(0, -1, 0),
		ExpiryDate: now.AddDate(0, 11, 0),
	}))

	res := f.book(t, f.customer.ID, monday(10, 0))
	assert.True(t, decimal.RequireFromString("10").Equal(res.MembershipDiscount))
	assert.True(t, decimal.RequireFromString("90").Equal(res.TotalDue))
}

func TestBook_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		req    BookRequest
		err    error
		reason string
	}{
		{"zero start", BookRequest{ServiceID: f.service.ID}, ErrInvalidInput, ""},
		{"past", BookRequest{ServiceID: f.service.ID, Start: now.Add(-time.Hour)}, ErrPastDate, "PastDate"},
		{"exactly now", BookRequest{ServiceID: f.service.ID, Start: now}, ErrPastDate, "PastDate"},
		{"unknown service", BookRequest{ServiceID: 999, Start: monday(10, 0)}, ErrServiceNotFound, "NotFound"},
		{"sunday", BookRequest{ServiceID: f.service.ID, Start: time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC)}, scheduling.ErrClosed, "Closed"},
		{"too late", BookRequest{ServiceID: f.service.ID, Start: monday(16, 30)}, scheduling.ErrOutOfHours, "OutOfHours"},
		{"too early", BookRequest{ServiceID: f.service.ID, Start: monday(8, 30)}, scheduling.ErrOutOfHours, "OutOfHours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.Book(ctx, f.customer.ID, tt.req)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.err)
			if tt.reason != "" {
				ae, ok := apperr.As(err)
				require.True(t, ok)
				assert.Equal(t, tt.reason, ae.Reason)
			}
		})
	}
	assert.Zero(t, f.metrics.accepted)
	assert.Len(t, f.metrics.rejected, len(tests))
}

func TestBook_UnknownCustomer(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Book(context.Background(), 4242, BookRequest{ServiceID: f.service.ID, Start: monday(10, 0)})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestBook_LastSlotOfTheDayFits(t *testing.T) {
	f := newFixture(t)
	res := f.book(t, f.customer.ID, monday(16, 0))
	assert.Equal(t, monday(17, 0), res.Appointment.Slot.End)
}

func TestBook_SlotTakenAndDoubleBooked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, f.customer.ID, monday(10, 0))

	other := f.newCustomer(t, "other@example.com")
	_, err := f.svc.Book(ctx, other.ID, BookRequest{ServiceID: f.service.ID, Start: monday(10, 30)})
	assert.ErrorIs(t, err, ErrSlotTaken)

	// back to back is fine
	f.book(t, other.ID, monday(11, 0))

	// same customer at another provider at the same time
	provider2 := &domain.User{Name: "Lee Nails", Email: "lee@example.com", PasswordHash: "x", Role: domain.RoleProvider}
	require.NoError(t, f.users.Create(ctx, provider2))
	svc2 := &domain.Service{
		ProviderID:      provider2.ID,
		Name:            "Manicure",
		Price:           decimal.RequireFromString("40"),
		DurationMinutes: 30,
		BusinessHours:   weekdays(domain.NewClockTime(8, 0), domain.NewClockTime(20, 0)),
	}
	require.NoError(t, f.services.Create(ctx, svc2))

	_, err = f.svc.Book(ctx, f.customer.ID, BookRequest{ServiceID: svc2.ID, Start: monday(10, 15)})
	assert.ErrorIs(t, err, ErrDoubleBooked)

	ae, _ := apperr.As(err)
	assert.Equal(t, "DoubleBooked", ae.Reason)
}

func TestBook_CancelledSlotIsFreeAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.book(t, f.customer.ID, monday(10, 0))
	_, err := f.svc.Cancel(ctx, f.customer.ID, res.AppointmentID, "plans changed")
	require.NoError(t, err)

	other := f.newCustomer(t, "other@example.com")
	f.book(t, other.ID, monday(10, 0))
}

func TestBook_ConcurrentRequestsForOneSlot(t *testing.T) {
	f := newFixture(t)
	const n = 8
	customers := make([]int64, n)
	for i := range customers {
		customers[i] = f.newCustomer(t, "c"+string(rune('a'+i))+"@example.com").ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Book(context.Background(), customers[i], BookRequest{ServiceID: f.service.ID, Start: monday(14, 0)})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, ErrSlotTaken)
	}
	assert.Equal(t, 1, accepted)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	q, err := f.svc.Preview(context.Background(), f.customer.ID, f.service.ID, monday(9, 0))
	require.NoError(t, err)
	assert.Equal(t, monday(10, 0), q.Slot.End)
	assert.Equal(t, "100", q.Payment.TotalDue.String())

	_, err = f.svc.Preview(context.Background(), f.customer.ID, f.service.ID, monday(18, 0))
	assert.ErrorIs(t, err, scheduling.ErrOutOfHours)

	list, err := f.svc.ListForCustomer(context.Background(), f.customer.ID, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "preview reserves nothing")
}

func TestConfirmDeclineCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a1 := f.book(t, f.customer.ID, monday(9, 0)).AppointmentID
	a2 := f.book(t, f.customer.ID, monday(11, 0)).AppointmentID
	a3 := f.book(t, f.customer.ID, monday(13, 0)).AppointmentID

	_, err := f.svc.Confirm(ctx, f.customer.ID, a1)
	assert.ErrorIs(t, err, scheduling.ErrForbidden)

	got, err := f.svc.Confirm(ctx, f.provider.ID, a1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)

	_, err = f.svc.Confirm(ctx, f.provider.ID, a1)
	assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)

	_, err = f.svc.Decline(ctx, f.provider.ID, a2, " no")
	assert.ErrorIs(t, err, scheduling.ErrNoteRequired)

	got, err = f.svc.Decline(ctx, f.provider.ID, a2, "fully booked")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeclined, got.Status)
	assert.Equal(t, "fully booked", got.CancellationNote)

	_, err = f.svc.Cancel(ctx, f.provider.ID, a3, "not mine")
	assert.ErrorIs(t, err, scheduling.ErrForbidden)
	_, err = f.svc.Cancel(ctx, f.customer.ID, a3, "")
	assert.ErrorIs(t, err, scheduling.ErrNoteRequired)

	got, err = f.svc.Cancel(ctx, f.customer.ID, a1, "sick")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	stored, err := f.appointments.GetByID(ctx, a1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
	assert.Equal(t, "sick", stored.CancellationNote)

	assert.Equal(t,
		[]domain.NotificationKind{domain.NotifBookingConfirmed, domain.NotifBookingDeclined},
		f.notifier.kinds(f.customer.ID))
	assert.Equal(t, []string{"confirmed", "declined", "cancelled"}, f.metrics.transitions)

	_, err = f.svc.Confirm(ctx, f.provider.ID, 999)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.book(t, f.customer.ID, monday(10, 0)).AppointmentID
	_, err := f.svc.Confirm(ctx, f.provider.ID, id)
	require.NoError(t, err)

	// overlapping its own old slot is fine
	got, err := f.svc.Reschedule(ctx, f.customer.ID, id, monday(10, 30))
	require.NoError(t, err)
	assert.Equal(t, monday(10, 30), got.Slot.Start)
	assert.Equal(t, domain.StatusConfirmed, got.Status)

	other := f.newCustomer(t, "other@example.com")
	f.book(t, other.ID, monday(14, 0))

	_, err = f.svc.Reschedule(ctx, f.customer.ID, id, monday(14, 30))
	assert.ErrorIs(t, err, ErrSlotTaken)
	_, err = f.svc.Reschedule(ctx, other.ID, id, monday(15, 0))
	assert.ErrorIs(t, err, scheduling.ErrForbidden)
	_, err = f.svc.Reschedule(ctx, f.customer.ID, id, now.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrPastDate)
	_, err = f.svc.Reschedule(ctx, f.customer.ID, id, monday(16, 30))
	assert.ErrorIs(t, err, scheduling.ErrOutOfHours)

	stored, err := f.appointments.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, monday(10, 30), stored.Slot.Start, "failed reschedules leave the slot alone")

	_, err = f.svc.Cancel(ctx, f.customer.ID, id, "changed my mind")
	require.NoError(t, err)
	_, err = f.svc.Reschedule(ctx, f.customer.ID, id, monday(15, 0))
	assert.ErrorIs(t, err, scheduling.ErrInvalidTransition)

	assert.Contains(t, f.notifier.kinds(f.provider.ID), domain.NotifBookingRescheduled)
}

func TestReschedule_RepricesWithCurrentMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.book(t, f.customer.ID, monday(10, 0)).AppointmentID

	require.NoError(t, f.users.UpdateMembership(ctx, f.customer.ID, &domain.Membership{
		Plan:       domain.PlanMonthly,
		StartDate:  now,
		ExpiryDate: now.AddDate(0, 1, 0),
	}))
	got, err := f.svc.Reschedule(ctx, f.customer.ID, id, monday(12, 0))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("95").Equal(got.Payment.TotalDue))
}

func TestCancelRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c2 := f.newCustomer(t, "two@example.com")

	a := f.book(t, f.customer.ID, monday(9, 0)).AppointmentID
	b := f.book(t, c2.ID, monday(12, 0)).AppointmentID
	_, err := f.svc.Confirm(ctx, f.provider.ID, b)
	require.NoError(t, err)
	declined := f.book(t, f.customer.ID, monday(14, 0)).AppointmentID
	_, err = f.svc.Decline(ctx, f.provider.ID, declined, "no capacity")
	require.NoError(t, err)
	tuesday := time.Date(2026, 11, 3, 10, 0, 0, 0, time.UTC)
	outside := f.book(t, f.customer.ID, tuesday).AppointmentID

	res, err := f.svc.CancelRange(ctx, f.provider.ID, monday(0, 0), monday(0, 0).AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Cancelled)
	assert.ElementsMatch(t, []int64{a, b}, res.AppointmentIDs)

	for _, id := range []int64{a, b} {
		got, err := f.appointments.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, got.Status)
		assert.Equal(t, scheduling.ProviderCancelReason, got.CancellationNote)
	}
	got, err := f.appointments.GetByID(ctx, outside)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	assert.Contains(t, f.notifier.kinds(c2.ID), domain.NotifBookingCancelled)

	_, err = f.svc.CancelRange(ctx, f.provider.ID, monday(12, 0), monday(9, 0))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestGetAndLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.book(t, f.customer.ID, monday(10, 0)).AppointmentID
	f.book(t, f.customer.ID, monday(12, 0))

	_, err := f.svc.Get(ctx, f.customer.ID, id)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, f.provider.ID, id)
	assert.NoError(t, err)
	stranger := f.newCustomer(t, "x@example.com")
	_, err = f.svc.Get(ctx, stranger.ID, id)
	assert.ErrorIs(t, err, scheduling.ErrForbidden)

	_, err = f.svc.Confirm(ctx, f.provider.ID, id)
	require.NoError(t, err)

	confirmed, err := f.svc.ListForProvider(ctx, f.provider.ID, ListFilter{Status: "confirmed"})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, id, confirmed[0].ID)

	mine, err := f.svc.ListForCustomer(ctx, f.customer.ID, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.svc.ListForProvider(ctx, f.provider.ID, ListFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, f.customer.ID, monday(10, 0))
	other := f.newCustomer(t, "other@example.com")
	f.book(t, other.ID, monday(11, 0))

	out, err := f.svc.Availability(ctx, f.service.ID, "2026-11-02")
	require.NoError(t, err)
	assert.True(t, out.Open)
	require.NotNil(t, out.WorkingHours)
	assert.Equal(t, domain.NewClockTime(9, 0), out.WorkingHours.From)
	require.Len(t, out.BookedSlots, 2)
	assert.Equal(t, "10:00", out.BookedSlots[0].Start)

	require.Len(t, out.FreeSlots, 2)
	assert.Equal(t, TimeSlot{Start: monday(9, 0), End: monday(10, 0)}, out.FreeSlots[0])
	assert.Equal(t, TimeSlot{Start: monday(12, 0), End: monday(17, 0)}, out.FreeSlots[1])

	sunday, err := f.svc.Availability(ctx, f.service.ID, "2026-11-01")
	require.NoError(t, err)
	assert.False(t, sunday.Open)
	assert.Empty(t, sunday.FreeSlots)

	_, err = f.svc.Availability(ctx, f.service.ID, "02.11.2026")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubtractBusy(t *testing.T) {
	open, close := monday(9, 0), monday(17, 0)
	busy := []TimeSlot{
		{Start: monday(13, 0), End: monday(14, 0)},
		{Start: monday(8, 0), End: monday(9, 30)},
		{Start: monday(13, 30), End: monday(15, 0)},
	}
	assert.Equal(t, []TimeSlot{
		{Start: monday(9, 30), End: monday(13, 0)},
		{Start: monday(15, 0), End: close},
	}, subtractBusy(open, close, busy))
}

type MockAppointmentStore struct {
	mock.Mock
	AppointmentStore
}

func (m *MockAppointmentStore) FindOverlapping(ctx context.Context, scope repository.Scope, ownerID int64, start, end time.Time, excludeID int64) ([]domain.Appointment, error) {
	args := m.Called(ctx, scope, ownerID, start, end, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *MockAppointmentStore) CreateIfFree(ctx context.Context, a *domain.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func TestBook_StoreFailures(t *testing.T) {
	f := newFixture(t)
	store := new(MockAppointmentStore)
	svc := NewService(Deps{
		Appointments: store,
		Services:     f.services,
		Users:        f.users,
		Clock:        f.clock,
		Log:          logging.Discard(),
	})
	ctx := context.Background()

	store.On("FindOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Appointment{}, nil)
	store.On("CreateIfFree", mock.Anything, mock.Anything).Return(repository.ErrCustomerConflict).Once()
	store.On("CreateIfFree", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()

	_, err := svc.Book(ctx, f.customer.ID, BookRequest{ServiceID: f.service.ID, Start: monday(10, 0)})
	assert.ErrorIs(t, err, ErrDoubleBooked, "a lost race maps to the rejection")

	_, err = svc.Book(ctx, f.customer.ID, BookRequest{ServiceID: f.service.ID, Start: monday(10, 0)})
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	store.AssertExpectations(t)
}
