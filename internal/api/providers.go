package api

import (
	"context"
	"database/sql"
	"time"

	"github.com/chainapsis/oko-sub000/internal/config"
	"github.com/chainapsis/oko-sub000/internal/persistence"
	"github.com/chainapsis/oko-sub000/internal/tss"
	"github.com/chainapsis/oko-sub000/internal/tss/orchestrator"
	"github.com/chainapsis/oko-sub000/internal/tss/storage"
	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PROVIDERS - define here only providers that for various reasons (e.g. cyclic dependency) can't live in their corresponding packages
// or for wrapping providers that only accept sub-configs to prevent the requirements for defining providers for sub-configs.
// https://github.com/google/wire/blob/main/docs/guide.md#defining-providers

func NewDB(cfg config.Server) (*sql.DB, error) {
	return persistence.NewDB(cfg.Database)
}

func NewClock() time2.Clock {
	return time2.DefaultClock
}

// NewStageDataCipher returns nil when no passphrase is configured
// (stage_data is then stored in plaintext).
func NewStageDataCipher(cfg config.Server) (*storage.StageDataCipher, error) {
	if cfg.TSS.StageDataPassphrase == "" {
		log.Warn().Msg("Stage data at-rest encryption is disabled")
		return nil, nil
	}
	return storage.NewStageDataCipher(cfg.TSS.StageDataPassphrase)
}

func NewStore(db *sql.DB, cipher *storage.StageDataCipher) *storage.PostgreSQLStore {
	return storage.NewPostgreSQLStore(db, cipher)
}

// NewRedisClient returns nil when the session cache is disabled.
func NewRedisClient(cfg config.Server) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	if cfg.Redis.Endpoint == "" {
		return nil, errors.New("redis endpoint is not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Endpoint,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to ping redis")
	}

	return client, nil
}

// NewSessionStore wraps the relational session registry with the Redis
// read-through cache when enabled.
func NewSessionStore(cfg config.Server, store *storage.PostgreSQLStore, client *redis.Client) storage.SessionStore {
	if client == nil {
		return store
	}
	return storage.NewCachedSessionStore(store, client, cfg.Redis.SessionTTL)
}

func NewStageStore(store *storage.PostgreSQLStore) storage.StageStore {
	return store
}

// NewEngine provides the opaque crypto engine boundary. The passthrough
// implementation relays message blobs unchanged; the real MPC engine binding
// replaces it at deployment time.
func NewEngine() tss.Engine {
	return tss.NewPassthroughEngine()
}

func NewTSSService(sessions storage.SessionStore, stages storage.StageStore, clock time2.Clock, engine tss.Engine) *orchestrator.Service {
	return orchestrator.NewService(sessions, stages, clock, engine)
}
