package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const (
	wsDefaultWriteTimeout = 5 * time.Second

	// Inbound frames are ignored but must still be drained for control
	// frame processing; keep the limit small.
	wsReadLimitBytes = 1 << 10
)

// WSGateway serves the live dashboard feed over WebSocket, as a richer
// alternative to the SSE stream. The feed is one-way: inbound frames are
// drained and discarded.
//
// Authentication mirrors the SSE gateway: token in the query string,
// verified once at connect time.
type WSGateway struct {
	log  *slog.Logger
	bus  *Bus
	auth StreamAuthenticator

	originPatterns []string
	heartbeat      time.Duration
	writeTimeout   time.Duration
}

func NewWSGateway(log *slog.Logger, bus *Bus, auth StreamAuthenticator, originPatterns []string, heartbeat time.Duration) *WSGateway {
	if log == nil {
		log = slog.Default()
	}
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	return &WSGateway{
		log:            log,
		bus:            bus,
		auth:           auth,
		originPatterns: originPatterns,
		heartbeat:      heartbeat,
		writeTimeout:   wsDefaultWriteTimeout,
	}
}

func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := g.auth.VerifyStream(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Info("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	conn.SetReadLimit(wsReadLimitBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain inbound frames so pings/pongs and the close handshake are
	// processed; any read error ends the stream.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	sub := g.bus.Subscribe()
	defer g.bus.Unsubscribe(sub)

	g.log.Info("ws.connect", "user_id", userID, "remote", r.RemoteAddr)
	defer g.log.Info("ws.disconnect", "user_id", userID)

	for {
		env, err := sub.Next(ctx, g.heartbeat)
		switch {
		case err == nil:
			if wErr := g.writeEnvelope(ctx, conn, env); wErr != nil {
				g.log.Info("ws.write.fail", "user_id", userID, "close_status", websocket.CloseStatus(wErr), "err", wErr)
				return
			}
		case errors.Is(err, ErrHeartbeat):
			pingCtx, pingCancel := context.WithTimeout(ctx, g.writeTimeout)
			pErr := conn.Ping(pingCtx)
			pingCancel()
			if pErr != nil {
				return
			}
		default:
			return
		}
	}
}

func (g *WSGateway) writeEnvelope(ctx context.Context, conn *websocket.Conn, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, g.writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, raw)
}
