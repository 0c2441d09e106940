// Package app wires the freight server runtime: config, logging, metrics,
// HTTP routes, and the realtime stream gateways.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"freight/cmd/identity"
	authapi "freight/cmd/internal/auth/api"
	"freight/cmd/internal/auth/session"
	"freight/cmd/internal/realtime"
	"freight/cmd/internal/shipments"
	shipmentsapi "freight/cmd/internal/shipments/api"
	"freight/cmd/internal/uploads"
	"freight/cmd/security/password"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the freight server runtime: it owns HTTP wiring, persistence
// lifecycle, and the realtime gateway dependencies.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *Metrics
	bus     *realtime.Bus
	sse     *realtime.SSEGateway
	ws      *realtime.WSGateway

	auth      *authapi.Handler
	shipments *shipmentsapi.Handler
	uploads   *uploads.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	st, dbPool, dbEnabled, userStore, shipmentStore, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	closeOnErr := func(e error) (*App, error) {
		_ = st.Close(context.Background())
		return nil, e
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return closeOnErr(err)
	}
	tokens, err := session.NewJWTManager(sessCfg)
	if err != nil {
		return closeOnErr(err)
	}
	sessions, err := session.NewService(userStore, tokens, sessCfg, password.DefaultConfig(), log)
	if err != nil {
		return closeOnErr(err)
	}
	authHandler, err := authapi.NewHandler(log, sessions)
	if err != nil {
		return closeOnErr(err)
	}

	metrics := NewMetrics()
	bus := realtime.NewBus(log, metrics.Bus())

	shipmentSvc, err := shipments.NewService(shipmentStore, bus, log)
	if err != nil {
		return closeOnErr(err)
	}
	shipmentHandler, err := shipmentsapi.NewHandler(log, shipmentSvc)
	if err != nil {
		return closeOnErr(err)
	}

	fileStore, err := uploads.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return closeOnErr(err)
	}
	fileHandler, err := uploads.NewHandler(log, fileStore)
	if err != nil {
		return closeOnErr(err)
	}

	sse := realtime.NewSSEGateway(log, bus, sessions, cfg.HeartbeatInterval)
	ws := realtime.NewWSGateway(log, bus, sessions, wsOriginPatterns(cfg.CORSAllowedOrigins), cfg.HeartbeatInterval)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		metrics:   metrics,
		bus:       bus,
		sse:       sse,
		ws:        ws,
		auth:      authHandler,
		shipments: shipmentHandler,
		uploads:   fileHandler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth, a.shipments, a.uploads, a.sse, a.ws)

	var handler http.Handler = mux
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithSecurityHeaders(handler)
	handler = a.metrics.WithHTTP(handler)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		// WriteTimeout stays as configured; zero keeps SSE and WS
		// connections alive past any fixed deadline.
		WriteTimeout:   a.cfg.WriteTimeout,
		IdleTimeout:    nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes: nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	base := runtimeBaseURL(a.cfg.HTTPAddr)
	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.dbEnabled,
		"base_url", base,
		"ws_url", wsBaseURL(base)+"/ws/shipments",
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStores decides between Postgres-backed persistence and the in-memory dev stores.
func newStores(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, identity.Store, shipments.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return nopStore{}, nil, false, identity.NewMemoryStore(), shipments.NewMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, nil, err
	}

	log.Info("db.enabled.postgres_store")

	// Ownership model: app owns the pool lifecycle; the stores borrow it.
	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}
	records, err := shipments.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, nil, err
	}

	return dbStore{pool: pool}, pool, true, users, records, nil
}

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// runtimeBaseURL turns a listen address into a URL a local client can reach.
// Wildcard binds map to the loopback address.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// wsBaseURL derives the websocket scheme from an HTTP base URL.
func wsBaseURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return "ws://" + base
	}
}

// wsOriginPatterns strips schemes from the CORS allow-list so the same
// configuration gates websocket upgrades. coder/websocket matches host
// patterns only.
func wsOriginPatterns(origins []string) []string {
	if len(origins) == 0 {
		return nil
	}
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
