package app

import (
	"context"
	"fmt"
	"time"

	"recipe-planner/internal/cache"
	"recipe-planner/internal/clipper"
	"recipe-planner/internal/config"
	"recipe-planner/internal/database"
	"recipe-planner/internal/gateway"
	"recipe-planner/internal/llm"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/session"
	"recipe-planner/internal/storage"
)

// Services is the wired application plus the infrastructure behind it.
type Services struct {
	App      *App
	DB       *database.DB
	Metrics  *metrics.Store
	Sessions *session.Repository

	closers []func() error
}

// Bootstrap opens the database, picks the cache store and the LLM provider
// and wires the App. Callers must Close the result.
func Bootstrap(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Services, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	s := &Services{
		DB:       db,
		Metrics:  metrics.NewStore(db.SQL),
		Sessions: session.NewRepository(db.SQL),
		closers:  []func() error{db.Close},
	}

	if n, err := s.Sessions.CleanupExpired(ctx, time.Now()); err != nil {
		log.Warn("failed to clean up expired sessions", "error", err)
	} else if n > 0 {
		log.Info("removed expired sessions", "count", n)
	}

	var store cache.Store = cache.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisStore, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheMaxAge,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, redisStore.Close)
		store = redisStore
		log.Info("using redis cache", "addr", cfg.RedisAddr)
	} else if cfg.CacheDir != "" {
		fileStore, err := storage.NewFileStore(cfg.CacheDir)
		if err != nil {
			s.Close()
			return nil, err
		}
		store = fileStore
		log.Debug("using file cache", "dir", cfg.CacheDir)
	}

	textGen, err := llm.NewFromConfig(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	if c, ok := textGen.(llm.Closer); ok {
		s.closers = append(s.closers, c.Close)
	}
	if textGen == nil {
		log.Info("no LLM configured, recipe import only reads structured data")
	}

	api := gateway.NewClient(cfg,
		gateway.WithObserver(RecordRequests(s.Metrics, log)),
		gateway.WithLogger(log),
	)
	s.App = NewApp(cfg, api, store, s.Sessions, clipper.NewClipper(textGen, log), log)
	return s, nil
}

// Close releases everything Bootstrap opened, newest first.
func (s *Services) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
