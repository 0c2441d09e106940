package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultHeartbeatInterval = 15 * time.Second

// StreamAuthenticator authorizes a stream connection from its out-of-band
// token. Structural verification only; the live session is not re-checked
// for the duration of the stream.
type StreamAuthenticator interface {
	VerifyStream(token string) (userID string, err error)
}

// SSEGateway serves the live dashboard feed as Server-Sent Events.
//
// The client passes its token as a query parameter because EventSource
// cannot set headers. Each connection gets its own bus subscription; while
// idle the gateway emits an "event: ping" keep-alive every heartbeat
// interval so intermediaries do not reap the connection.
type SSEGateway struct {
	log       *slog.Logger
	bus       *Bus
	auth      StreamAuthenticator
	heartbeat time.Duration
}

func NewSSEGateway(log *slog.Logger, bus *Bus, auth StreamAuthenticator, heartbeat time.Duration) *SSEGateway {
	if log == nil {
		log = slog.Default()
	}
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	return &SSEGateway{log: log, bus: bus, auth: auth, heartbeat: heartbeat}
}

func (g *SSEGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID, err := g.auth.VerifyStream(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.log.Error("sse.no_flusher")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := g.bus.Subscribe()
	defer g.bus.Unsubscribe(sub)

	g.log.Info("sse.connect", "user_id", userID, "remote", r.RemoteAddr)
	defer g.log.Info("sse.disconnect", "user_id", userID)

	ctx := r.Context()
	for {
		env, err := sub.Next(ctx, g.heartbeat)
		switch {
		case err == nil:
			raw, mErr := json.Marshal(env)
			if mErr != nil {
				g.log.Error("sse.encode.fail", "err", mErr)
				continue
			}
			if _, wErr := fmt.Fprintf(w, "data: %s\n\n", raw); wErr != nil {
				return
			}
			flusher.Flush()
		case errors.Is(err, ErrHeartbeat):
			if _, wErr := fmt.Fprint(w, "event: ping\n\n"); wErr != nil {
				return
			}
			flusher.Flush()
		default:
			// Context cancelled or subscriber closed.
			return
		}
	}
}
