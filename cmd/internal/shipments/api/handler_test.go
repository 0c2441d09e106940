package shipmentsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"freight/cmd/identity"
	authapi "freight/cmd/internal/auth/api"
	"freight/cmd/internal/auth/session"
	"freight/cmd/internal/realtime"
	"freight/cmd/internal/shipments"
	"freight/cmd/security/password"
)

type testEnv struct {
	srv *httptest.Server
	bus *realtime.Bus

	staffToken string
	adminToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := session.DefaultConfig()
	cfg.SigningKey = "shipmentsapi-test-key"
	cfg.TokenTTL = time.Hour
	tokens, err := session.NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	pw := password.DefaultConfig()
	pw.Cost = bcrypt.MinCost

	sessions, err := session.NewService(identity.NewMemoryStore(), tokens, cfg, pw, logger)
	if err != nil {
		t.Fatalf("session.NewService: %v", err)
	}
	gate, err := authapi.NewHandler(logger, sessions)
	if err != nil {
		t.Fatalf("authapi.NewHandler: %v", err)
	}

	bus := realtime.NewBus(logger, nil)
	svc, err := shipments.NewService(shipments.NewMemoryStore(), bus, logger)
	if err != nil {
		t.Fatalf("shipments.NewService: %v", err)
	}
	h, err := NewHandler(logger, svc)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux, gate)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env := &testEnv{srv: srv, bus: bus}
	env.staffToken = loginAs(t, sessions, "staffer", identity.RoleStaff)
	env.adminToken = loginAs(t, sessions, "boss", identity.RoleAdmin)
	return env
}

func loginAs(t *testing.T, sessions *session.Service, username string, role identity.Role) string {
	t.Helper()
	ctx := context.Background()
	if _, err := sessions.Register(ctx, username, "long enough pass", role); err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	grant, err := sessions.Login(ctx, username, "long enough pass", false)
	if err != nil {
		t.Fatalf("Login(%s): %v", username, err)
	}
	return grant.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do %s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func validCreateBody() map[string]any {
	return map[string]any{
		"customer_name":   "Acme Trading",
		"collection_from": "Port Klang North Gate",
		"deliver_to":      "Penang Warehouse 3",
		"pickup_date":     "2026-03-01",
		"delivery_date":   "2026-03-03",
		"shipment_type":   "In-House",
		"revenue_amount":  1500.50,
	}
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/shipments/", env.staffToken, validCreateBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decodeBody[shipments.Shipment](t, resp)
	if created.BookingReference == "" || created.Status != shipments.StatusNew {
		t.Fatalf("created = %+v", created)
	}

	resp = env.do(t, http.MethodGet, "/api/shipments/"+created.ID, env.staffToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	got := decodeBody[shipments.Shipment](t, resp)
	if got.ID != created.ID || got.CustomerName != "Acme Trading" {
		t.Fatalf("got = %+v", got)
	}

	resp = env.do(t, http.MethodGet, "/api/shipments/missing-id", env.staffToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing get status = %d, want 404", resp.StatusCode)
	}
}

func TestCreate_RequiresAuthAndValidBody(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/shipments/", "", validCreateBody())
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	bad := validCreateBody()
	delete(bad, "customer_name")
	resp = env.do(t, http.MethodPost, "/api/shipments/", env.staffToken, bad)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid body status = %d, want 400", resp.StatusCode)
	}

	bad = validCreateBody()
	bad["shipment_type"] = "Teleport"
	resp = env.do(t, http.MethodPost, "/api/shipments/", env.staffToken, bad)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad type status = %d, want 400", resp.StatusCode)
	}
}

func TestList_FilterAndPaging(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		body := validCreateBody()
		if i == 1 {
			body["status"] = "Assigned"
		}
		resp := env.do(t, http.MethodPost, "/api/shipments/", env.staffToken, body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed create status = %d", resp.StatusCode)
		}
	}

	resp := env.do(t, http.MethodGet, "/api/shipments/", env.staffToken, nil)
	all := decodeBody[[]shipments.Shipment](t, resp)
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}

	resp = env.do(t, http.MethodGet, "/api/shipments/?status=Assigned", env.staffToken, nil)
	assigned := decodeBody[[]shipments.Shipment](t, resp)
	if len(assigned) != 1 {
		t.Fatalf("len(assigned) = %d, want 1", len(assigned))
	}

	resp = env.do(t, http.MethodGet, "/api/shipments/?skip=2&limit=5", env.staffToken, nil)
	page := decodeBody[[]shipments.Shipment](t, resp)
	if len(page) != 1 {
		t.Fatalf("len(page) = %d, want 1", len(page))
	}

	resp = env.do(t, http.MethodGet, "/api/shipments/?status=Lost", env.staffToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad filter status = %d, want 400", resp.StatusCode)
	}
}

func TestPatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/shipments/", env.staffToken, validCreateBody())
	created := decodeBody[shipments.Shipment](t, resp)

	resp = env.do(t, http.MethodPatch, "/api/shipments/"+created.ID, env.staffToken,
		map[string]any{"status": "PickedUp", "driver_name": "K. Tan"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	updated := decodeBody[shipments.Shipment](t, resp)
	if updated.Status != shipments.StatusPickedUp {
		t.Errorf("status = %q, want PickedUp", updated.Status)
	}
	if updated.DriverName == nil || *updated.DriverName != "K. Tan" {
		t.Errorf("driver = %v", updated.DriverName)
	}

	resp = env.do(t, http.MethodPatch, "/api/shipments/"+created.ID, env.staffToken, map[string]any{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty patch status = %d, want 400", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPatch, "/api/shipments/nope", env.staffToken, map[string]any{"status": "Completed"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing patch status = %d, want 404", resp.StatusCode)
	}
}

func TestDelete_RoleGate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/shipments/", env.staffToken, validCreateBody())
	created := decodeBody[shipments.Shipment](t, resp)

	resp = env.do(t, http.MethodDelete, "/api/shipments/"+created.ID, env.staffToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("staff delete status = %d, want 403", resp.StatusCode)
	}

	resp = env.do(t, http.MethodDelete, "/api/shipments/"+created.ID, env.adminToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("admin delete status = %d, want 204", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/shipments/"+created.ID, env.staffToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestMutationsBroadcast(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sub := env.bus.Subscribe()
	t.Cleanup(func() { env.bus.Unsubscribe(sub) })

	resp := env.do(t, http.MethodPost, "/api/shipments/", env.staffToken, validCreateBody())
	created := decodeBody[shipments.Shipment](t, resp)

	env.do(t, http.MethodPatch, "/api/shipments/"+created.ID, env.staffToken,
		map[string]any{"status": "Delivered"}).Body.Close()
	env.do(t, http.MethodDelete, "/api/shipments/"+created.ID, env.adminToken, nil).Body.Close()

	wantEvents := []string{realtime.EventCreated, realtime.EventUpdated, realtime.EventDeleted}
	for _, want := range wantEvents {
		got, err := sub.Next(context.Background(), 2*time.Second)
		if err != nil {
			t.Fatalf("Next(%s): %v", want, err)
		}
		if got.Event != want {
			t.Fatalf("event = %q, want %q", got.Event, want)
		}
	}
}
