// Package app wires all Grimoire subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP surface until the context is cancelled,
// and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore, WithCache,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/grimoire/internal/config"
	"github.com/MrWong99/grimoire/internal/health"
	"github.com/MrWong99/grimoire/internal/lint"
	"github.com/MrWong99/grimoire/internal/observe"
	"github.com/MrWong99/grimoire/internal/prompt"
	"github.com/MrWong99/grimoire/internal/rendercache"
	"github.com/MrWong99/grimoire/internal/template"
)

// App owns all subsystem lifetimes for the Grimoire render service.
type App struct {
	cfg *config.Config

	// Subsystems — initialised in New, torn down in Shutdown.
	metrics   *observe.Metrics
	store     *template.MemStore
	pool      *pgxpool.Pool
	cache     *rendercache.Cache
	renderer  *prompt.Renderer
	validator *lint.Validator
	watcher   *template.Watcher

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a template store instead of creating a fresh MemStore.
func WithStore(s *template.MemStore) Option {
	return func(a *App) { a.store = s }
}

// WithCache injects a render cache instead of creating one from config.
func WithCache(c *rendercache.Cache) Option {
	return func(a *App) { a.cache = c }
}

// WithMetrics injects a metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together: the render cache,
// the in-memory template registry (loaded from the configured YAML packs and,
// when a DSN is set, synced from PostgreSQL), the hot-reload watcher, the
// renderer, and the validator.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Render cache ──────────────────────────────────────────────────
	if a.cache == nil {
		a.cache = rendercache.New(rendercache.Config{
			TTL:        cfg.Cache.TTL,
			MaxBytes:   cfg.Cache.MaxBytes,
			MaxEntries: cfg.Cache.MaxEntries,
		}, rendercache.WithMetrics(a.metrics))
	}

	// ── 2. Template registry ─────────────────────────────────────────────
	if a.store == nil {
		a.store = template.NewMemStore()
	}
	if err := a.loadPacks(ctx); err != nil {
		return nil, fmt.Errorf("app: load template packs: %w", err)
	}

	// ── 3. PostgreSQL authoring backend (optional) ───────────────────────
	if err := a.initPostgres(ctx); err != nil {
		return nil, fmt.Errorf("app: init postgres: %w", err)
	}

	// ── 4. Pack watcher (optional) ───────────────────────────────────────
	if err := a.initWatcher(ctx); err != nil {
		return nil, fmt.Errorf("app: init watcher: %w", err)
	}

	// ── 5. Renderer + validator ──────────────────────────────────────────
	a.renderer = prompt.NewRenderer(a.store,
		prompt.WithCache(a.cache),
		prompt.WithMetrics(a.metrics),
	)
	a.validator = lint.New(a.store)

	a.metrics.TemplatesActive.Add(ctx, int64(a.store.Count()))
	slog.Info("grimoire ready", "templates", a.store.Count())
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// loadPacks imports every configured YAML pack into the registry. Packs load
// concurrently; parse them all even if one fails so the operator sees every
// problem at once.
func (a *App) loadPacks(ctx context.Context) error {
	if len(a.cfg.Templates.Packs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range a.cfg.Templates.Packs {
		g.Go(func() error {
			pack, err := template.LoadPackFile(path)
			if err != nil {
				return fmt.Errorf("load pack %q: %w", path, err)
			}
			n, err := template.ImportPack(ctx, a.store, pack)
			if err != nil {
				return fmt.Errorf("import pack %q: %w", path, err)
			}
			slog.Info("imported template pack", "path", path, "templates", n)
			return nil
		})
	}
	return g.Wait()
}

// initPostgres connects the authoring backend and syncs its definitions into
// the in-memory registry. Postgres definitions win over pack definitions on
// key conflicts.
func (a *App) initPostgres(ctx context.Context) error {
	dsn := a.cfg.Templates.PostgresDSN
	if dsn == "" {
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect %q: %w", dsn, err)
	}
	a.pool = pool
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})

	pg := template.NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	defs, err := pg.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	for _, def := range defs {
		if err := a.store.Upsert(ctx, def); err != nil {
			return fmt.Errorf("sync %q: %w", def.Key, err)
		}
	}
	slog.Info("synced templates from postgres", "templates", len(defs))
	return nil
}

// initWatcher starts hot-reloading of pack files when a watch interval is
// configured. Reloaded templates invalidate their cached renders.
func (a *App) initWatcher(ctx context.Context) error {
	if a.cfg.Templates.WatchInterval <= 0 || len(a.cfg.Templates.Packs) == 0 {
		return nil
	}

	w, err := template.NewWatcher(ctx, a.store, a.cfg.Templates.Packs,
		template.WithInterval(a.cfg.Templates.WatchInterval),
		template.WithOnReload(func(keys []string) {
			for _, key := range keys {
				n := a.cache.InvalidateTemplate(context.Background(), key)
				if n > 0 {
					slog.Debug("invalidated cached renders", "template", key, "entries", n)
				}
			}
		}))
	if err != nil {
		return err
	}
	a.watcher = w
	a.closers = append(a.closers, func() error {
		w.Stop()
		return nil
	})
	return nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Renderer returns the wired prompt renderer.
func (a *App) Renderer() *prompt.Renderer { return a.renderer }

// Validator returns the wired template validator.
func (a *App) Validator() *lint.Validator { return a.validator }

// Store returns the in-memory template registry.
func (a *App) Store() *template.MemStore { return a.store }

// Cache returns the render result cache.
func (a *App) Cache() *rendercache.Cache { return a.cache }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP surface (health, readiness, Prometheus metrics) and
// blocks until ctx is cancelled. When no listen address is configured, Run
// just blocks on the context — the renderer still works for library callers.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Server.ListenAddr == "" {
		slog.Info("no listen address configured, http surface disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	mux := http.NewServeMux()
	health.New(
		health.TemplateStoreProbe(a.store),
		health.CacheProbe(a.cache),
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("app: http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown error", "err", err)
	}
	return ctx.Err()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems. It respects the context deadline: if
// ctx expires before all closers finish, remaining closers are skipped and
// the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
