package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wolfman30/vetchat/internal/api/router"
	"github.com/wolfman30/vetchat/internal/appointments"
	appconfig "github.com/wolfman30/vetchat/internal/config"
	"github.com/wolfman30/vetchat/internal/conversation"
	"github.com/wolfman30/vetchat/pkg/logging"
)

// Stores groups the persistence dependencies selected by STORE_BACKEND.
type Stores struct {
	Conversations conversation.Store
	Appointments  appointments.Repository
	Locker        conversation.SessionLocker
	HealthChecks  map[string]router.HealthCheck
	closers       []func(ctx context.Context) error
}

// Close releases every connection opened by BuildStores.
func (s *Stores) Close(ctx context.Context) error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

func (s *Stores) addCheck(name string, fn router.HealthCheck) {
	if s.HealthChecks == nil {
		s.HealthChecks = make(map[string]router.HealthCheck)
	}
	s.HealthChecks[name] = fn
}

// BuildStores opens the configured backend and the session locker.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stores := &Stores{}
	var err error
	switch cfg.StoreBackend {
	case "", appconfig.StoreMemory:
		stores.Conversations = conversation.NewMemoryStore()
		stores.Appointments = appointments.NewMemoryRepository()
		logger.Warn("using in-memory stores; data is lost on restart")
	case appconfig.StorePostgres:
		err = stores.openPostgres(ctx, cfg.DatabaseURL, logger)
	case appconfig.StoreMongo:
		err = stores.openMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
	default:
		return nil, fmt.Errorf("bootstrap: unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		_ = stores.Close(ctx)
		return nil, err
	}

	if client := BuildRedisClient(cfg); client != nil {
		stores.Locker = conversation.NewRedisLocker(client, cfg.SessionLockTTL)
		stores.addCheck("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
		stores.closers = append(stores.closers, func(context.Context) error { return client.Close() })
		logger.Info("redis session locks enabled", "addr", cfg.RedisAddr)
	} else {
		stores.Locker = conversation.NewLocalLocker()
	}
	return stores, nil
}

func (s *Stores) openPostgres(ctx context.Context, databaseURL string, logger *logging.Logger) error {
	if strings.TrimSpace(databaseURL) == "" {
		return fmt.Errorf("bootstrap: DATABASE_URL is required for the postgres backend")
	}

	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("bootstrap: open postgres: %w", err)
	}
	s.closers = append(s.closers, func(context.Context) error { return sqlDB.Close() })
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("bootstrap: ping postgres: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("bootstrap: open pgx pool: %w", err)
	}
	s.closers = append(s.closers, func(context.Context) error { pool.Close(); return nil })

	s.Conversations = conversation.NewPostgresStore(sqlDB)
	s.Appointments = appointments.NewPostgresRepository(pool)
	s.addCheck("postgres", pool.Ping)
	logger.Info("using postgres stores")
	return nil
}

func (s *Stores) openMongo(ctx context.Context, uri, database string, logger *logging.Logger) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("bootstrap: connect mongo: %w", err)
	}
	s.closers = append(s.closers, client.Disconnect)
	if err := client.Ping(connectCtx, nil); err != nil {
		return fmt.Errorf("bootstrap: ping mongo: %w", err)
	}

	db := client.Database(database)
	convs := conversation.NewMongoStore(db)
	appts := appointments.NewMongoRepository(db)
	if err := convs.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("failed to ensure conversation indexes", "error", err)
	}
	if err := appts.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("failed to ensure appointment indexes", "error", err)
	}

	s.Conversations = convs
	s.Appointments = appts
	s.addCheck("mongo", func(ctx context.Context) error { return client.Ping(ctx, nil) })
	logger.Info("using mongo stores", "database", database)
	return nil
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
func BuildRedisClient(cfg *appconfig.Config) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(redisOptions)
}
