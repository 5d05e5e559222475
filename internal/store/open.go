package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"qtumor/internal/config"
	"qtumor/internal/jobs"
	"qtumor/internal/migrate"
)

// Open constructs the HandleStore selected by cfg.Store.Driver. The
// returned close function releases any connections it opened.
func Open(cfg *config.Config) (jobs.HandleStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case "", "memory":
		m, err := NewMemory(cfg.Store.MemorySize)
		if err != nil {
			return nil, nil, err
		}
		return m, noop, nil
	case "redis":
		if cfg.Redis.URL == "" {
			return nil, nil, fmt.Errorf("redis.url is required for the redis store")
		}
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		ttl := time.Duration(cfg.Store.RedisTTLMinutes) * time.Minute
		return NewRedis(rdb, ttl), rdb.Close, nil
	case "postgres":
		if cfg.Database.DSN == "" {
			return nil, nil, fmt.Errorf("database.dsn is required for the postgres store")
		}
		// Run migrations on a short-lived connection
		if err := migrate.Run(cfg.Database.DSN); err != nil {
			return nil, nil, fmt.Errorf("migrations failed: %w", err)
		}
		db, err := sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open db failed: %w", err)
		}
		// Basic pool settings; adjust as needed
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		return New(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
