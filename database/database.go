package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-booking/models"
)

// Supported values of Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Options selects and configures the storage backend.
type Options struct {
	Driver string
	// Path is the SQLite database file.
	Path string
	// URL is the Postgres DSN or the Mongo connection URI.
	URL           string
	MongoDatabase string
}

// InitDatabase 初始化数据库连接
func InitDatabase(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		db, err := gorm.Open(sqlite.Open(opts.Path), gormConfig())
		if err != nil {
			return nil, err
		}
		// SQLite allows a single writer; one connection keeps writers queued
		// instead of failing with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return NewGormStore(db)
	case DriverPostgres:
		db, err := gorm.Open(postgres.Open(opts.URL), gormConfig())
		if err != nil {
			return nil, err
		}
		return NewGormStore(db)
	case DriverMongo:
		return NewMongoStore(ctx, opts.URL, opts.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// NewGormStore migrates the tables and returns the SQL-backed store.
func NewGormStore(db *gorm.DB) (Store, error) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Hotel{},
		&models.Room{},
		&models.RoomUnit{},
		&models.UnitDate{},
	)
	if err != nil {
		return nil, err
	}
	logrus.Info("数据库初始化完成")
	return &gormStore{db: db}, nil
}
