// Command sweep runs the appointment sweeps once and exits. It suits an external
// scheduler when the API runs without its in-process cron.
package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"tapbook/internal/config"
	"tapbook/internal/database"
	"tapbook/internal/logging"
	"tapbook/internal/modules/notification"
	"tapbook/internal/repository"
	"tapbook/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.IsProd())

	db, err := database.Connect(cfg.DatabaseURL, database.Options{Log: log})
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	// no websocket clients in this process; notifications land in the inbox only
	notifier := notification.NewService(repository.NewNotificationRepository(db), nil, log)
	sw := sweeper.New(repository.NewAppointmentRepository(db), notifier, sweeper.Config{
		ReminderLead: cfg.ReminderLead,
		Log:          log,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	completed, err := sw.CompletePastDue(ctx)
	if err != nil {
		log.Fatalf("complete past due failed: %v", err)
	}
	reminded, err := sw.SendReminders(ctx)
	if err != nil {
		log.Fatalf("send reminders failed: %v", err)
	}

	log.WithFields(logrus.Fields{"completed": completed, "reminded": reminded}).Info("sweep completed")
}
