package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antoniostano/concierge/internal/auth"
	"github.com/antoniostano/concierge/internal/cache"
	"github.com/antoniostano/concierge/internal/config"
	"github.com/antoniostano/concierge/internal/history"
	"github.com/antoniostano/concierge/internal/httpapi"
	"github.com/antoniostano/concierge/internal/observability"
	"github.com/antoniostano/concierge/internal/orchestrator"
	"github.com/antoniostano/concierge/internal/responder"
	"github.com/antoniostano/concierge/internal/session"
)

// BuildResult holds the wired service graph.
type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Manager
	Hub      *orchestrator.Hub
	Metrics  *observability.Metrics

	// Cleanup should be called on shutdown to release external resources
	// (DB pool, redis connections).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	// One connection pool serves every postgres-backed store.
	var pool *pgxpool.Pool
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	}
	closePool := func() {
		if pool != nil {
			pool.Close()
		}
	}

	store, err := history.NewStore(ctx, pool, cfg.Location)
	if err != nil {
		closePool()
		return nil, fmt.Errorf("history store init failed: %w", err)
	}

	userStore, err := auth.NewUserStore(ctx, pool)
	if err != nil {
		closePool()
		return nil, fmt.Errorf("user store init failed: %w", err)
	}
	gateway := auth.NewGateway(userStore)

	ai, err := responder.New(responder.Config{
		Mode:    cfg.ResponderMode,
		URL:     cfg.ResponderURL,
		Timeout: cfg.ResponderTimeout,
	})
	if err != nil {
		closePool()
		return nil, fmt.Errorf("responder init failed: %w", err)
	}

	queryCache, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		closePool()
		return nil, fmt.Errorf("cache init failed: %w", err)
	}

	// Every query-log append, the session turn path included, drops the
	// cached projection.
	store = history.WithQueryLogInvalidation(store, queryCache)

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	hub := orchestrator.NewHub(sessions, store, ai, metrics, cfg.ResponderTimeout, cfg.Location)
	sessions.SetExpireHook(func(s *session.Session) {
		hub.Drop(s.ID)
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	api := httpapi.New(cfg, sessions, hub, store, gateway, queryCache, metrics)

	cleanup := func() error {
		var errs []string
		if err := queryCache.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := userStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		closePool()
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Hub:      hub,
		Metrics:  metrics,
		Cleanup:  cleanup,
	}, nil
}
