package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tapbook/internal/database"
	"tapbook/internal/domain"
	"tapbook/internal/logging"
	"tapbook/internal/pkg/clock"
	"tapbook/internal/repository"
)

type sent struct {
	userID int64
	kind   domain.NotificationKind
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingNotifier) Notify(_ context.Context, userID int64, kind domain.NotificationKind, _ map[string]any) {
	r.mu.Lock()
	r.sent = append(r.sent, sent{userID, kind})
	r.mu.Unlock()
}

type countingRecorder struct {
	items       map[string]int
	transitions int
}

func (c *countingRecorder) SweepItems(job string, n int) { c.items[job] += n }
func (c *countingRecorder) Transition(string)            { c.transitions++ }

var now = time.Date(2026, 11, 2, 12, 0, 0, 0, time.UTC)

type fixture struct {
	sw       *Sweeper
	repo     *repository.AppointmentRepository
	notifier *recordingNotifier
	metrics  *countingRecorder
	clock    *clock.Fixed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	f := &fixture{
		repo:     repository.NewAppointmentRepository(db),
		notifier: &recordingNotifier{},
		metrics:  &countingRecorder{items: map[string]int{}},
		clock:    clock.NewFixed(now),
	}
	f.sw = New(f.repo, f.notifier, Config{
		ReminderLead: 24 * time.Hour,
		Clock:        f.clock,
		Metrics:      f.metrics,
		Log:          logging.Discard(),
	})
	return f
}

// add stores an appointment for customer starting at start, moved to status.
func (f *fixture) add(t *testing.T, customerID int64, start time.Time, status domain.AppointmentStatus) int64 {
	t.Helper()
	ctx := context.Background()
	a := &domain.Appointment{
		CustomerID: customerID,
		ServiceID:  1,
		ProviderID: 100 + customerID,
		Slot:       domain.Slot{Start: start, End: start.Add(time.Hour)},
		Status:     domain.StatusPending,
	}
	require.NoError(t, f.repo.CreateIfFree(ctx, a))
	if status != domain.StatusPending {
		require.NoError(t, f.repo.UpdateStatus(ctx, a.ID, []domain.AppointmentStatus{domain.StatusPending}, status, ""))
	}
	return a.ID
}

func (f *fixture) status(t *testing.T, id int64) domain.AppointmentStatus {
	t.Helper()
	a, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return a.Status
}

func TestCompletePastDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ended := f.add(t, 1, now.Add(-3*time.Hour), domain.StatusConfirmed)
	endsNow := f.add(t, 2, now.Add(-time.Hour), domain.StatusConfirmed)
	running := f.add(t, 3, now.Add(-30*time.Minute), domain.StatusConfirmed)
	pending := f.add(t, 4, now.Add(-3*time.Hour), domain.StatusPending)

	n, err := f.sw.CompletePastDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, domain.StatusCompleted, f.status(t, ended))
	assert.Equal(t, domain.StatusCompleted, f.status(t, endsNow))
	assert.Equal(t, domain.StatusConfirmed, f.status(t, running))
	assert.Equal(t, domain.StatusPending, f.status(t, pending), "pending appointments are never auto-completed")

	assert.ElementsMatch(t, []sent{{1, domain.NotifBookingCompleted}, {2, domain.NotifBookingCompleted}}, f.notifier.sent)
	assert.Equal(t, 2, f.metrics.transitions)

	n, err = f.sw.CompletePastDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.notifier.sent, 2)
	assert.Equal(t, 2, f.metrics.items[JobComplete])
}

func TestSendReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	soon := f.add(t, 1, now.Add(2*time.Hour), domain.StatusConfirmed)
	f.add(t, 2, now.Add(30*time.Hour), domain.StatusConfirmed)
	f.add(t, 3, now.Add(3*time.Hour), domain.StatusPending)

	n, err := f.sw.SendReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []sent{{1, domain.NotifBookingReminder}}, f.notifier.sent)

	a, err := f.repo.GetByID(ctx, soon)
	require.NoError(t, err)
	assert.True(t, a.Reminded)

	n, err = f.sw.SendReminders(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "each appointment is reminded once")

	f.clock.Advance(8 * time.Hour)
	n, err = f.sw.SendReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, f.metrics.items[JobRemind])
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CompletePastDue(ctx context.Context, now time.Time) ([]domain.Appointment, error) {
	args := m.Called(ctx, now)
	list, _ := args.Get(0).([]domain.Appointment)
	return list, args.Error(1)
}

func (m *mockStore) DueForReminder(ctx context.Context, now, until time.Time) ([]domain.Appointment, error) {
	args := m.Called(ctx, now, until)
	list, _ := args.Get(0).([]domain.Appointment)
	return list, args.Error(1)
}

func (m *mockStore) MarkReminded(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func TestRunOnce_JobsAreIndependent(t *testing.T) {
	store := new(mockStore)
	notifier := &recordingNotifier{}
	sw := New(store, notifier, Config{Clock: clock.NewFixed(now), Log: logging.Discard()})

	boom := errors.New("database is locked")
	store.On("CompletePastDue", mock.Anything, now).Return(nil, boom)
	store.On("DueForReminder", mock.Anything, now, now.Add(24*time.Hour)).Return([]domain.Appointment{
		{ID: 1, CustomerID: 10},
		{ID: 2, CustomerID: 20},
		{ID: 3, CustomerID: 30},
	}, nil)
	store.On("MarkReminded", mock.Anything, int64(1)).Return(true, nil)
	store.On("MarkReminded", mock.Anything, int64(2)).Return(false, nil)
	store.On("MarkReminded", mock.Anything, int64(3)).Return(false, errors.New("timeout"))

	err := sw.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []sent{{10, domain.NotifBookingReminder}}, notifier.sent)
	store.AssertExpectations(t)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	sw := New(new(mockStore), nil, Config{Log: logging.Discard()})
	assert.Error(t, sw.Start("every now and then"))
	sw.Stop(context.Background())
}

func TestStartStop(t *testing.T) {
	store := new(mockStore)
	store.On("CompletePastDue", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	store.On("DueForReminder", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()

	sw := New(store, nil, Config{Log: logging.Discard()})
	require.NoError(t, sw.Start("@every 1h"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sw.Stop(ctx)
}
