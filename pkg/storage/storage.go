// Package storage implements core.TokenStorage on top of SQL, BuntDB and MongoDB
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/cryptoalert/pkg/core"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DefaultDatabase      = "crypto_alert_bot.db"
	DefaultMongoDatabase = "crypto_alert_bot"
)

// Option customizes a storage backend
type Option func(*base)

// base holds what every backend shares
type base struct {
	now func() time.Time
}

func newBase(opts []Option) base {
	b := base{now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// WithClock replaces the time source used for last_check timestamps
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

// Open picks a backend from the connection string:
//
//	buntdb://<path>             BuntDB file, buntdb://:memory: for an in-memory store
//	mongodb://, mongodb+srv://  MongoDB, database name from settings
//	postgres://, postgresql://  PostgreSQL through GORM
//	anything else               SQLite file through GORM, DefaultDatabase when empty
func Open(ctx context.Context, settings core.StorageSettings, opts ...Option) (core.TokenStorage, error) {
	url := strings.TrimSpace(settings.URL)

	var (
		store core.TokenStorage
		err   error
	)

	switch {
	case strings.HasPrefix(url, "buntdb://"):
		store, err = asStorage(NewBuntStorage(strings.TrimPrefix(url, "buntdb://"), opts...))
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		dbName := settings.MongoDatabase
		if dbName == "" {
			dbName = DefaultMongoDatabase
		}
		store, err = asStorage(NewFromMongo(ctx, url, dbName, opts...))
	case strings.Contains(url, "://") && !isPostgres(url):
		scheme, _, _ := strings.Cut(url, "://")
		err = fmt.Errorf("%w: %s", core.ErrUnknownDriver, scheme)
	default:
		store, err = asStorage(FromDSN(url, DefaultConfig(), opts...))
	}

	if err != nil {
		return nil, err
	}
	return store, nil
}

// asStorage keeps a failed constructor from leaking a typed nil into the interface
func asStorage[T core.TokenStorage](store T, err error) (core.TokenStorage, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}

// FromDSN opens a GORM backed storage, PostgreSQL for postgres URLs and SQLite otherwise
func FromDSN(dsn string, config Config, opts ...Option) (*SQLStorage, error) {
	gormOpts := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	if isPostgres(dsn) {
		return NewFromPostgres(normalizePostgres(dsn), config, gormOpts, opts...)
	}

	if dsn == "" {
		dsn = DefaultDatabase
	}
	return NewFromSQLite(dsn, config, gormOpts, opts...)
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// normalizePostgres rewrites the legacy postgres:// scheme some hosting providers hand out
func normalizePostgres(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(dsn, "postgres://")
	}
	return dsn
}
