package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tapbook/internal/config"
	"tapbook/internal/database"
	"tapbook/internal/lock"
	"tapbook/internal/metrics"
	"tapbook/internal/middleware"
	"tapbook/internal/modules/auth"
	"tapbook/internal/modules/booking"
	"tapbook/internal/modules/catalog"
	"tapbook/internal/modules/membership"
	"tapbook/internal/modules/notification"
	"tapbook/internal/modules/review"
	"tapbook/internal/pkg/clock"
	"tapbook/internal/pkg/jwt"
	"tapbook/internal/pkg/response"
	"tapbook/internal/repository"
	"tapbook/internal/sweeper"
)

// App holds the wired dependencies of the API process.
type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	DB      *gorm.DB
	Redis   *redis.Client
	Metrics *metrics.Metrics
	Router  *gin.Engine
	Server  *http.Server
	Sweeper *sweeper.Sweeper
	Hub     *notification.Hub

	limiter *middleware.RateLimiter
}

type Option func(*options)

type options struct {
	db    *gorm.DB
	redis *redis.Client
	clock clock.Clock
}

// WithDB uses an already open and migrated database instead of DATABASE_URL.
func WithDB(db *gorm.DB) Option { return func(o *options) { o.db = db } }

// WithRedis uses rdb for the slot locker instead of REDIS_URL.
func WithRedis(rdb *redis.Client) Option { return func(o *options) { o.redis = rdb } }

func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// New connects the stores and wires every module into one router.
func New(cfg *config.Config, log *logrus.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.System{}
	}

	app := &App{Config: cfg, Log: log, DB: o.db, Redis: o.redis}

	if app.DB == nil {
		db, err := database.Connect(cfg.DatabaseURL, database.Options{
			Log:         log,
			MaxOpen:     25,
			MaxIdle:     5,
			MaxLifetime: 30 * time.Minute,
			LogQueries:  log.IsLevelEnabled(logrus.DebugLevel),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := repository.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		app.DB = db
		log.Info("database connected")
	}

	if app.Redis == nil && cfg.RedisURL != "" {
		rdb, err := ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		app.Redis = rdb
		log.Info("redis connected")
	}

	app.Metrics = metrics.New("tapbook")
	app.wire(o.clock)
	return app, nil
}

// ConnectRedis parses a redis:// URL and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func (a *App) wire(clk clock.Clock) {
	cfg, log, db := a.Config, a.Log, a.DB

	j := jwt.New(cfg.JWTSecret, cfg.JWTTTL)

	users := repository.NewUserRepository(db)
	services := repository.NewServiceRepository(db)
	appointments := repository.NewAppointmentRepository(db)
	reviews := repository.NewReviewRepository(db)
	notifications := repository.NewNotificationRepository(db)

	var locker lock.Locker = lock.NewLocal()
	if a.Redis != nil {
		locker = lock.NewRedis(a.Redis, lock.WithLogger(log))
	}

	a.Hub = notification.NewHub(log, a.Metrics)
	notificationService := notification.NewService(notifications, a.Hub, log)

	authService := auth.NewService(users, j, log)
	catalogService := catalog.NewService(services, reviews, log)
	membershipService := membership.NewService(users, clk, log)
	reviewService := review.NewService(reviews, appointments, services, notificationService, log)
	bookingService := booking.NewService(booking.Deps{
		Appointments: appointments,
		Services:     services,
		Users:        users,
		Ratings:      reviews,
		Notifier:     notificationService,
		Locker:       locker,
		Clock:        clk,
		Location:     cfg.Location,
		Metrics:      a.Metrics,
		Log:          log,
	})

	a.Sweeper = sweeper.New(appointments, notificationService, sweeper.Config{
		ReminderLead: cfg.ReminderLead,
		Clock:        clk,
		Metrics:      a.Metrics,
		Log:          log,
	})

	authHandler := auth.NewHandler(authService, cfg.JWTTTL)
	catalogHandler := catalog.NewHandler(catalogService)
	bookingHandler := booking.NewHandler(bookingService)
	membershipHandler := membership.NewHandler(membershipService)
	reviewHandler := review.NewHandler(reviewService)
	notificationHandler := notification.NewHandler(notificationService, a.Hub, cfg.CORSOrigins)

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(a.Metrics.Middleware())
	if cfg.RateLimitRPS > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
		r.Use(a.limiter.Middleware())
	}

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)
		catalogHandler.RegisterPublicRoutes(v1)
		bookingHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(j))
		{
			authHandler.RegisterProtectedRoutes(protected)
			catalogHandler.RegisterProtectedRoutes(protected)
			bookingHandler.RegisterProtectedRoutes(protected)
			membershipHandler.RegisterRoutes(protected)
			notificationHandler.RegisterRoutes(protected)
		}
		reviewHandler.RegisterRoutes(v1, protected)
	}

	a.Router = r
	a.Server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (a *App) health(c *gin.Context) {
	sqlDB, err := a.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "UNHEALTHY", "database unavailable")
		return
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(c.Request.Context()).Err(); err != nil {
			response.Error(c, http.StatusServiceUnavailable, "UNHEALTHY", "redis unavailable")
			return
		}
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// Run serves HTTP and runs the sweeper until ctx is done, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Sweeper.Start(a.Config.SweepSchedule); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}
	if a.limiter != nil {
		go a.sweepLimiter(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.WithFields(logrus.Fields{"addr": a.Server.Addr, "env": a.Config.AppEnv}).Info("server starting")
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Log.WithError(err).Error("server forced to shutdown")
	}
	a.Sweeper.Stop(shutdownCtx)
	a.Close()
	a.Log.Info("shutdown complete")
	return serveErr
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.limiter.Sweep(10 * time.Minute)
		}
	}
}

// Close disconnects websocket clients and releases the database and redis connections.
func (a *App) Close() {
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
