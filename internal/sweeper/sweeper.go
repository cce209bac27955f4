package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tapbook/internal/domain"
	"tapbook/internal/pkg/clock"
)

const (
	JobComplete = "complete_past_due"
	JobRemind   = "send_reminders"
)

type Store interface {
	CompletePastDue(ctx context.Context, now time.Time) ([]domain.Appointment, error)
	DueForReminder(ctx context.Context, now, until time.Time) ([]domain.Appointment, error)
	MarkReminded(ctx context.Context, id int64) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, kind domain.NotificationKind, payload map[string]any)
}

type Recorder interface {
	SweepItems(job string, n int)
	Transition(status string)
}

type noopRecorder struct{}

func (noopRecorder) SweepItems(string, int) {}
func (noopRecorder) Transition(string)      {}

type Config struct {
	ReminderLead time.Duration
	Clock        clock.Clock
	Metrics      Recorder
	Log          logrus.FieldLogger
}

// Sweeper runs the periodic maintenance jobs over appointments: completing confirmed
// appointments whose slot has ended and reminding customers of upcoming ones.
type Sweeper struct {
	store    Store
	notifier Notifier
	lead     time.Duration
	clock    clock.Clock
	metrics  Recorder
	log      logrus.FieldLogger
	cron     *cron.Cron
}

func New(store Store, notifier Notifier, cfg Config) *Sweeper {
	if cfg.ReminderLead <= 0 {
		cfg.ReminderLead = 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopRecorder{}
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &Sweeper{
		store:    store,
		notifier: notifier,
		lead:     cfg.ReminderLead,
		clock:    cfg.Clock,
		metrics:  cfg.Metrics,
		log:      cfg.Log.WithField("component", "sweeper"),
	}
}

// CompletePastDue moves every confirmed appointment whose slot ended at or before now
// to completed and tells each customer. Running it twice completes nothing new.
func (s *Sweeper) CompletePastDue(ctx context.Context) (int, error) {
	done, err := s.store.CompletePastDue(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	for _, a := range done {
		s.metrics.Transition(string(domain.StatusCompleted))
		s.notify(ctx, a.CustomerID, domain.NotifBookingCompleted, a)
	}
	s.metrics.SweepItems(JobComplete, len(done))
	if len(done) > 0 {
		s.log.WithField("count", len(done)).Info("appointments completed")
	}
	return len(done), nil
}

// SendReminders notifies customers of confirmed appointments starting within the
// reminder lead. Each appointment is reminded once.
func (s *Sweeper) SendReminders(ctx context.Context) (int, error) {
	now := s.clock.Now()
	due, err := s.store.DueForReminder(ctx, now, now.Add(s.lead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, a := range due {
		ok, err := s.store.MarkReminded(ctx, a.ID)
		if err != nil {
			s.log.WithError(err).WithField("appointment_id", a.ID).Warn("mark reminded failed")
			continue
		}
		if !ok {
			continue
		}
		s.notify(ctx, a.CustomerID, domain.NotifBookingReminder, a)
		sent++
	}
	s.metrics.SweepItems(JobRemind, sent)
	if sent > 0 {
		s.log.WithField("count", sent).Info("reminders sent")
	}
	return sent, nil
}

// RunOnce runs both jobs; a failing job does not stop the other.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	_, errComplete := s.CompletePastDue(ctx)
	if errComplete != nil {
		s.log.WithError(errComplete).WithField("job", JobComplete).Error("sweep failed")
	}
	_, errRemind := s.SendReminders(ctx)
	if errRemind != nil {
		s.log.WithError(errRemind).WithField("job", JobRemind).Error("sweep failed")
	}
	return errors.Join(errComplete, errRemind)
}

// Start schedules RunOnce on schedule (standard cron syntax or @every). Overlapping runs
// are skipped.
func (s *Sweeper) Start(schedule string) error {
	logger := cron.PrintfLogger(s.log)
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_ = s.RunOnce(ctx)
	}); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.WithField("schedule", schedule).Info("sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep up to ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("sweeper stop timed out")
	}
}

func (s *Sweeper) notify(ctx context.Context, userID int64, kind domain.NotificationKind, a domain.Appointment) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, kind, map[string]any{
		"appointment_id": a.ID,
		"service_id":     a.ServiceID,
		"start":          a.Slot.Start,
	})
}
