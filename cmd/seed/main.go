package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tapbook/internal/config"
	"tapbook/internal/database"
	"tapbook/internal/domain"
	"tapbook/internal/logging"
	"tapbook/internal/repository"
	"tapbook/internal/scheduling"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	log := logging.New(cfg.LogLevel, false)
	if cfg.IsProd() {
		log.Fatal("refusing to seed a production database")
	}

	db, err := database.Connect(cfg.DatabaseURL, database.Options{Log: log})
	if err != nil {
		log.Fatal("DB connection failed: ", err)
	}

	log.Info("running migrations...")
	if err := repository.Migrate(db); err != nil {
		log.Fatal("migrate failed: ", err)
	}

	// Cleanup old data
	log.Info("cleaning old data...")
	for _, table := range []string{"notifications", "reviews", "appointments", "services", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("cleanup %s failed: %v", table, err)
		}
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	services := repository.NewServiceRepository(db)
	appointments := repository.NewAppointmentRepository(db)
	reviews := repository.NewReviewRepository(db)

	// ================== USERS ==================
	log.Info("creating users...")
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	providerNames := []string{"Dana Barber", "Marat Massage", "Aigerim Nails", "Yerlan Fitness"}
	providers := make([]*domain.User, 0, len(providerNames))
	for i, name := range providerNames {
		u := &domain.User{
			Name:         name,
			Email:        fmt.Sprintf("provider%d@tapbook.dev", i+1),
			PasswordHash: string(hash),
			Role:         domain.RoleProvider,
			Phone:        fmt.Sprintf("+7 700 000 10%02d", i),
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create provider: %v", err)
		}
		providers = append(providers, u)
	}

	now := time.Now().In(cfg.Location)
	customers := make([]*domain.User, 0, 5)
	for i := 0; i < 5; i++ {
		u := &domain.User{
			Name:         fmt.Sprintf("Customer %d", i+1),
			Email:        fmt.Sprintf("customer%d@tapbook.dev", i+1),
			PasswordHash: string(hash),
			Role:         domain.RoleCustomer,
			Phone:        fmt.Sprintf("+7 700 000 20%02d", i),
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create customer: %v", err)
		}
		if i%2 == 0 {
			plan := domain.PlanMonthly
			expiry := now.AddDate(0, 1, 0)
			if i == 0 {
				plan, expiry = domain.PlanYearly, now.AddDate(1, 0, 0)
			}
			u.Membership = &domain.Membership{Plan: plan, StartDate: now, ExpiryDate: expiry}
			if err := users.UpdateMembership(ctx, u.ID, u.Membership); err != nil {
				log.Fatalf("membership: %v", err)
			}
		}
		customers = append(customers, u)
	}

	// ================== SERVICES ==================
	log.Info("creating services...")
	catalog := []struct {
		name, category string
		price          string
		minutes        int
	}{
		{"Haircut", "hair", "25.00", 45},
		{"Deep tissue massage", "spa", "60.00", 60},
		{"Gel manicure", "nails", "30.00", 60},
		{"Personal training", "fitness", "40.00", 90},
	}
	svcs := make([]*domain.Service, 0, len(catalog))
	for i, c := range catalog {
		var hours domain.BusinessHours
		for d := time.Monday; d <= time.Saturday; d++ {
			hours[d] = domain.DayHours{Open: true, From: domain.NewClockTime(9, 0), To: domain.NewClockTime(18, 0)}
		}
		svc := &domain.Service{
			ProviderID:      providers[i].ID,
			Name:            c.name,
			Category:        c.category,
			Description:     "Demo listing",
			Price:           decimal.RequireFromString(c.price),
			DurationMinutes: c.minutes,
			Address:         fmt.Sprintf("%d Abay Ave", 10+i),
			BusinessHours:   hours,
		}
		if err := services.Create(ctx, svc); err != nil {
			log.Fatalf("create service: %v", err)
		}
		svcs = append(svcs, svc)
	}

	// ================== APPOINTMENTS ==================
	log.Info("creating appointments...")
	created, skipped := 0, 0
	for i := 0; i < 30; i++ {
		svc := svcs[rand.Intn(len(svcs))]
		customer := customers[rand.Intn(len(customers))]

		day := now.AddDate(0, 0, rand.Intn(28)-14)
		start := time.Date(day.Year(), day.Month(), day.Day(), 9+rand.Intn(7), 0, 0, 0, cfg.Location)
		slot := scheduling.NewSlot(start, svc.Duration())
		if scheduling.CheckHours(svc.BusinessHours, slot, cfg.Location) != nil {
			skipped++
			continue
		}

		a := &domain.Appointment{
			CustomerID:    customer.ID,
			ServiceID:     svc.ID,
			ProviderID:    svc.ProviderID,
			Slot:          slot,
			Status:        domain.StatusPending,
			Payment:       scheduling.Price(svc.Price, customer.Membership, start),
			CustomerName:  customer.Name,
			CustomerPhone: customer.Phone,
		}
		if err := appointments.CreateIfFree(ctx, a); err != nil {
			// overlapping draws are expected
			skipped++
			continue
		}
		created++

		pending := []domain.AppointmentStatus{domain.StatusPending}
		switch {
		case slot.End.Before(now):
			_ = appointments.UpdateStatus(ctx, a.ID, pending, domain.StatusCompleted, "")
			_ = reviews.Create(ctx, &domain.Review{
				AppointmentID: a.ID,
				ServiceID:     svc.ID,
				AuthorID:      customer.ID,
				SubjectID:     svc.ProviderID,
				Direction:     domain.ReviewOfProvider,
				Rating:        3 + rand.Intn(3),
				Comment:       "Seeded review",
			})
		case rand.Intn(2) == 0:
			_ = appointments.UpdateStatus(ctx, a.ID, pending, domain.StatusConfirmed, "")
		}
	}

	log.WithFields(logrus.Fields{
		"providers":    len(providers),
		"customers":    len(customers),
		"services":     len(svcs),
		"appointments": created,
		"skipped":      skipped,
	}).Info("seed completed; every account uses password123")
}
