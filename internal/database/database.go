package database

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// pure Go sqlite driver registered as "sqlite"
	_ "modernc.org/sqlite"
)

type Options struct {
	Log         *logrus.Logger
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	LogQueries  bool
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Connect opens PostgreSQL for postgres URLs and SQLite for anything else (a file path
// or ":memory:").
func Connect(dsn string, opts ...Options) (*gorm.DB, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	log := o.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if o.LogQueries {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	if isPostgresDSN(dsn) {
		log.Info("connecting to PostgreSQL")
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if o.MaxOpen > 0 {
			sqlDB.SetMaxOpenConns(o.MaxOpen)
		}
		if o.MaxIdle > 0 {
			sqlDB.SetMaxIdleConns(o.MaxIdle)
		}
		if o.MaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(o.MaxLifetime)
		}
		return db, nil
	}

	log.WithField("dsn", dsn).Info("using SQLite")
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared
	// across the pool.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
