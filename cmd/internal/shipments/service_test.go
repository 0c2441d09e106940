package shipments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"freight/cmd/identity"
	"freight/cmd/internal/realtime"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staffActor() identity.User {
	return identity.User{ID: "user-staff", Role: identity.RoleStaff}
}

func adminActor() identity.User {
	return identity.User{ID: "user-admin", Role: identity.RoleAdmin}
}

func validInput() CreateInput {
	return CreateInput{
		CustomerName:   "Acme Trading",
		CollectionFrom: "Port Klang North Gate",
		DeliverTo:      "Penang Warehouse 3",
		PickupDate:     DateOf(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		DeliveryDate:   DateOf(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)),
		Type:           TypeInHouse,
		RevenueAmount:  1500,
	}
}

func newTestService(t *testing.T, store Store) (*Service, *realtime.Bus) {
	t.Helper()
	bus := realtime.NewBus(testLogger(), nil)
	svc, err := NewService(store, bus, testLogger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, bus
}

func nextEvent(t *testing.T, sub *realtime.Subscriber) realtime.Envelope {
	t.Helper()
	env, err := sub.Next(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return env
}

func TestCreate_AssignsReferenceAndBroadcasts(t *testing.T) {
	t.Parallel()

	svc, bus := newTestService(t, NewMemoryStore())
	sub := bus.Subscribe()
	t.Cleanup(func() { bus.Unsubscribe(sub) })

	ctx := context.Background()
	year := time.Now().UTC().Year()

	first, err := svc.Create(ctx, staffActor(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(ctx, staffActor(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	wantFirst := fmt.Sprintf("SHP-%d-0001", year)
	if first.BookingReference != wantFirst {
		t.Errorf("first ref = %q, want %q", first.BookingReference, wantFirst)
	}
	wantSecond := fmt.Sprintf("SHP-%d-0002", year)
	if second.BookingReference != wantSecond {
		t.Errorf("second ref = %q, want %q", second.BookingReference, wantSecond)
	}
	if first.Status != StatusNew {
		t.Errorf("default status = %q, want New", first.Status)
	}
	if first.UpdatedByUserID == nil || *first.UpdatedByUserID != "user-staff" {
		t.Errorf("UpdatedByUserID = %v", first.UpdatedByUserID)
	}

	env := nextEvent(t, sub)
	if env.Event != realtime.EventCreated || env.Channel != realtime.ChannelShipments {
		t.Fatalf("event = %+v", env)
	}
	var got Shipment
	if err := json.Unmarshal(env.Payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("payload id = %q, want %q", got.ID, first.ID)
	}
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{name: "missing customer", mutate: func(in *CreateInput) { in.CustomerName = " " }},
		{name: "missing route", mutate: func(in *CreateInput) { in.DeliverTo = "" }},
		{name: "missing dates", mutate: func(in *CreateInput) { in.PickupDate = Date{} }},
		{name: "missing type", mutate: func(in *CreateInput) { in.Type = "" }},
		{name: "bad status", mutate: func(in *CreateInput) { in.Status = Status("Lost") }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := validInput()
			tc.mutate(&in)
			if _, err := svc.Create(ctx, staffActor(), in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

// collidingStore forces Insert collisions for a configurable number of
// calls, then delegates.
type collidingStore struct {
	Store
	failures int
	inserts  int
}

func (c *collidingStore) Insert(ctx context.Context, s Shipment) error {
	c.inserts++
	if c.inserts <= c.failures {
		return ErrDuplicateRef
	}
	return c.Store.Insert(ctx, s)
}

func TestCreate_RetriesReferenceCollision(t *testing.T) {
	t.Parallel()

	store := &collidingStore{Store: NewMemoryStore(), failures: 2}
	svc, _ := newTestService(t, store)

	sh, err := svc.Create(context.Background(), staffActor(), validInput())
	if err != nil {
		t.Fatalf("Create after collisions: %v", err)
	}
	if store.inserts != 3 {
		t.Errorf("inserts = %d, want 3", store.inserts)
	}
	if sh.BookingReference == "" {
		t.Error("empty booking reference")
	}
}

func TestCreate_ExhaustedRetriesSurfaceDuplicate(t *testing.T) {
	t.Parallel()

	store := &collidingStore{Store: NewMemoryStore(), failures: 3}
	svc, _ := newTestService(t, store)

	if _, err := svc.Create(context.Background(), staffActor(), validInput()); !errors.Is(err, ErrDuplicateRef) {
		t.Fatalf("error = %v, want ErrDuplicateRef", err)
	}
	if store.inserts != 3 {
		t.Errorf("inserts = %d, want 3", store.inserts)
	}
}

func TestUpdate_AppliesPatchAndBroadcasts(t *testing.T) {
	t.Parallel()

	svc, bus := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	sh, err := svc.Create(ctx, staffActor(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sub := bus.Subscribe()
	t.Cleanup(func() { bus.Unsubscribe(sub) })

	status := StatusAssigned
	driver := "K. Tan"
	updated, err := svc.Update(ctx, adminActor(), sh.ID, Patch{Status: &status, DriverName: &driver})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != StatusAssigned {
		t.Errorf("status = %q, want Assigned", updated.Status)
	}
	if updated.DriverName == nil || *updated.DriverName != driver {
		t.Errorf("driver = %v, want %q", updated.DriverName, driver)
	}
	if updated.CustomerName != sh.CustomerName {
		t.Errorf("untouched field changed: %q", updated.CustomerName)
	}
	if updated.UpdatedByUserID == nil || *updated.UpdatedByUserID != "user-admin" {
		t.Errorf("UpdatedByUserID = %v", updated.UpdatedByUserID)
	}

	env := nextEvent(t, sub)
	if env.Event != realtime.EventUpdated {
		t.Fatalf("event = %q, want updated", env.Event)
	}

	if _, err := svc.Update(ctx, adminActor(), "missing", Patch{Status: &status}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id error = %v, want ErrNotFound", err)
	}
	bad := Status("Lost")
	if _, err := svc.Update(ctx, adminActor(), sh.ID, Patch{Status: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad status error = %v, want ErrInvalidInput", err)
	}
}

func TestDelete_AdminOnlyAndBroadcastsID(t *testing.T) {
	t.Parallel()

	svc, bus := newTestService(t, NewMemoryStore())
	ctx := context.Background()

	sh, err := svc.Create(ctx, staffActor(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(ctx, staffActor(), sh.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("staff delete error = %v, want ErrForbidden", err)
	}

	sub := bus.Subscribe()
	t.Cleanup(func() { bus.Unsubscribe(sub) })

	if err := svc.Delete(ctx, adminActor(), sh.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	env := nextEvent(t, sub)
	if env.Event != realtime.EventDeleted {
		t.Fatalf("event = %q, want deleted", env.Event)
	}
	var payload map[string]string
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["id"] != sh.ID {
		t.Errorf("payload = %v", payload)
	}

	// Gone from reads; a second delete is NotFound.
	if _, err := svc.Get(ctx, sh.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, adminActor(), sh.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestList_FilterAndPagination(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	statuses := []Status{StatusNew, StatusAssigned, StatusNew, StatusDelivered, StatusNew}
	for i, st := range statuses {
		in := validInput()
		in.Status = st
		clock := base.Add(time.Duration(i) * time.Minute)
		svcWithClock, err := NewService(store, realtime.NewBus(testLogger(), nil), testLogger(),
			WithClock(func() time.Time { return clock }))
		if err != nil {
			t.Fatalf("NewService: %v", err)
		}
		if _, err := svcWithClock.Create(ctx, staffActor(), in); err != nil {
			t.Fatalf("Create[%d]: %v", i, err)
		}
	}

	all, err := svc.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len(all) = %d, want 5", len(all))
	}
	// Newest first.
	for i := 0; i < len(all)-1; i++ {
		if all[i].CreatedAt.Before(all[i+1].CreatedAt) {
			t.Fatalf("list not ordered newest first at %d", i)
		}
	}

	news, err := svc.List(ctx, Filter{Status: StatusNew})
	if err != nil {
		t.Fatalf("List(New): %v", err)
	}
	if len(news) != 3 {
		t.Fatalf("len(New) = %d, want 3", len(news))
	}

	page, err := svc.List(ctx, Filter{Offset: 3, Limit: 10})
	if err != nil {
		t.Fatalf("List(page): %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("len(page) = %d, want 2", len(page))
	}

	if _, err := svc.List(ctx, Filter{Status: Status("Lost")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad filter error = %v, want ErrInvalidInput", err)
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	d := DateOf(time.Date(2026, 7, 9, 13, 45, 0, 0, time.UTC))
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"2026-07-09"` {
		t.Fatalf("raw = %s", raw)
	}

	var back Date
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip = %v, want %v", back, d)
	}

	if err := json.Unmarshal([]byte(`"09/07/2026"`), &back); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad layout error = %v, want ErrInvalidInput", err)
	}
}
