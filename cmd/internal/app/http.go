package app

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	authapi "freight/cmd/internal/auth/api"
	"freight/cmd/internal/realtime"
	shipmentsapi "freight/cmd/internal/shipments/api"
	"freight/cmd/internal/uploads"
)

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	cfg Config,
	dbPool *pgxpool.Pool,
	dbEnabled bool,
	metrics *Metrics,
	auth *authapi.Handler,
	shipments *shipmentsapi.Handler,
	files *uploads.Handler,
	sse *realtime.SSEGateway,
	ws *realtime.WSGateway,
) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.ReadinessRequireDB && !dbEnabled {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if dbEnabled && dbPool != nil {
			if err := PingDB(r.Context(), dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	auth.Register(mux)
	shipments.Register(mux, auth)
	files.Register(mux, auth)

	mux.Handle("/api/stream/shipments", sse)
	mux.Handle("/ws/shipments", ws)
}
