// Package main provides a CI-friendly smoke test for the freight realtime stream.
//
// It validates:
//   - login (with forced takeover so reruns never hit the session lock)
//   - WebSocket handshake on /ws/shipments with query-param token auth
//   - shipment create via REST
//   - the created event arriving on the stream with the right reference
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const maxReadBytes = 1 << 20 // 1MiB

type envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		username = flag.String("user", "smoke", "Username to log in as (registered if missing)")
		pass     = flag.String("pass", "smoke-test-pass", "Password")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	ctx := context.Background()

	token, err := login(ctx, *baseURL, *username, *pass, *timeout)
	if err != nil {
		fatalf("login: %v", err)
	}
	logf(*verbose, "logged in as %s", *username)

	wsURL := wsEndpoint(*baseURL) + "/ws/shipments?token=" + url.QueryEscape(token)

	dialCtx, cancel := context.WithTimeout(ctx, *timeout)
	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	cancel()
	if err != nil {
		fatalf("ws dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	conn.SetReadLimit(maxReadBytes)
	logf(*verbose, "ws connected: %s", wsURL)

	ref, err := createShipment(ctx, *baseURL, token, *timeout)
	if err != nil {
		fatalf("create shipment: %v", err)
	}
	logf(*verbose, "created shipment %s", ref)

	env, err := readEvent(ctx, conn, *timeout)
	if err != nil {
		fatalf("read event: %v", err)
	}
	if env.Channel != "shipments" || env.Event != "created" {
		fatalf("unexpected event %s/%s", env.Channel, env.Event)
	}
	var payload struct {
		BookingReference string `json:"booking_reference"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		fatalf("decode payload: %v", err)
	}
	if payload.BookingReference != ref {
		fatalf("event reference %q does not match created %q", payload.BookingReference, ref)
	}

	fmt.Printf("OK: stream delivered %s for %s\n", env.Event, ref)
}

func login(ctx context.Context, base, username, pass string, timeout time.Duration) (string, error) {
	// Registration is idempotent for smoke purposes: a 409 means the user
	// already exists from a previous run.
	code, _, err := postJSON(ctx, base+"/api/auth/register", "", map[string]any{
		"username": username,
		"password": pass,
	}, timeout)
	if err != nil {
		return "", err
	}
	if code != http.StatusCreated && code != http.StatusConflict {
		return "", fmt.Errorf("register returned %d", code)
	}

	code, body, err := postJSON(ctx, base+"/api/auth/login", "", map[string]any{
		"username": username,
		"password": pass,
		"force":    true,
	}, timeout)
	if err != nil {
		return "", err
	}
	if code != http.StatusOK {
		return "", fmt.Errorf("login returned %d: %s", code, body)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("login response missing access_token")
	}
	return resp.AccessToken, nil
}

func createShipment(ctx context.Context, base, token string, timeout time.Duration) (string, error) {
	code, body, err := postJSON(ctx, base+"/api/shipments/", token, map[string]any{
		"customer_name":   "Smoke Test Ltd",
		"collection_from": "Port Klang",
		"deliver_to":      "Penang",
		"pickup_date":     time.Now().UTC().Format("2006-01-02"),
		"shipment_type":   "In-House",
	}, timeout)
	if err != nil {
		return "", err
	}
	if code != http.StatusCreated {
		return "", fmt.Errorf("create returned %d: %s", code, body)
	}

	var resp struct {
		BookingReference string `json:"booking_reference"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	return resp.BookingReference, nil
}

func readEvent(ctx context.Context, conn *websocket.Conn, timeout time.Duration) (envelope, error) {
	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, data, err := conn.Read(readCtx)
	if err != nil {
		return envelope{}, err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, err
	}
	return env, nil
}

func postJSON(ctx context.Context, endpoint, token string, body any, timeout time.Duration) (int, []byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

func wsEndpoint(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	default:
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func logf(verbose bool, format string, args ...any) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
