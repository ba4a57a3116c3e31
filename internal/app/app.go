package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"recipe-planner/internal/cache"
	"recipe-planner/internal/clipper"
	"recipe-planner/internal/config"
	"recipe-planner/internal/gateway"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/session"
)

// App holds the application's dependencies and hands out one Workspace per
// session owner (the CLI, or a Telegram user).
type App struct {
	cfg      *config.Config
	api      *gateway.Client
	store    cache.Store
	sessions *session.Repository
	clipper  *clipper.Clipper
	log      *logger.Logger
	now      func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewApp creates and initializes a new App instance. sessions and clip may
// be nil: sessions then live only in memory and recipe import is disabled.
func NewApp(
	cfg *config.Config,
	api *gateway.Client,
	store cache.Store,
	sessions *session.Repository,
	clip *clipper.Clipper,
	log *logger.Logger,
) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{
		cfg:        cfg,
		api:        api,
		store:      store,
		sessions:   sessions,
		clipper:    clip,
		log:        log,
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
	}
}

// Workspace returns the workspace of owner, restoring a stored session on
// first use. Concurrent callers for the same owner share one workspace and
// therefore one cache.
func (a *App) Workspace(ctx context.Context, owner string) (*Workspace, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ws, ok := a.workspaces[owner]; ok {
		return ws, nil
	}

	opts := []cache.Option{
		cache.WithNamespace("owner:" + owner),
		cache.WithMaxAge(a.cfg.CacheMaxAge),
		cache.WithLogger(a.log.With("owner", owner)),
	}
	ws := &Workspace{
		app:   a,
		owner: owner,
		cache: cache.New(a.store, opts...),
		log:   a.log.With("owner", owner),
	}

	var stored *session.Session
	if a.sessions != nil {
		s, err := a.sessions.Get(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("failed to restore session: %w", err)
		}
		stored = s
	}
	if stored != nil && !stored.Active(a.now()) {
		a.log.Info("stored session expired", "owner", owner, "user_id", stored.UserID)
		if err := a.sessions.Delete(ctx, owner); err != nil {
			a.log.Warn("failed to delete expired session", "owner", owner, "error", err)
		}
		stored = nil
	}
	ws.bind(stored)

	a.workspaces[owner] = ws
	return ws, nil
}

// AssetURL resolves an image reference for display.
func (a *App) AssetURL(ref string) string {
	return gateway.AssetURL(a.cfg.AssetBaseURL, ref)
}
