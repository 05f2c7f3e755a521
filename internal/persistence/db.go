package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/chainapsis/oko-sub000/internal/config"
	"github.com/pkg/errors"

	// Import postgres driver for database/sql package
	_ "github.com/lib/pq"
)

// NewDB opens a PostgreSQL connection pool and verifies connectivity.
func NewDB(cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return db, nil
}
