package shipments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"freight/cmd/identity"
	"freight/cmd/identity/ids"
	"freight/cmd/internal/realtime"
)

// refAttempts bounds how many booking reference collisions Create absorbs
// before surfacing ErrDuplicateRef.
const refAttempts = 3

// Service owns shipment lifecycle rules: booking reference generation,
// role-gated deletion, and event publication after every committed write.
type Service struct {
	store Store
	bus   *realtime.Bus
	log   *slog.Logger

	now func() time.Time
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, bus *realtime.Bus, log *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if store == nil || bus == nil {
		return nil, errors.New("shipments: nil store or bus")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		store: store,
		bus:   bus,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// bookingReference builds the next running reference, SHP-<year>-NNNN,
// from the count of references already issued this year.
func (s *Service) bookingReference(ctx context.Context, now time.Time) (string, error) {
	prefix := fmt.Sprintf("SHP-%d", now.Year())
	n, err := s.store.CountByRefPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("booking reference: %w", err)
	}
	return fmt.Sprintf("%s-%04d", prefix, n+1), nil
}

// Create validates in, assigns id and booking reference, and inserts. A
// reference collision (two concurrent creates drawing the same running
// number) is retried with a freshly counted reference; exhausting the
// retries surfaces ErrDuplicateRef. On success the full record is
// broadcast as a "created" event.
func (s *Service) Create(ctx context.Context, actor identity.User, in CreateInput) (Shipment, error) {
	if err := in.validate(); err != nil {
		return Shipment{}, err
	}

	now := s.now()
	id, err := ids.NewULID(now)
	if err != nil {
		return Shipment{}, fmt.Errorf("create shipment: %w", err)
	}

	status := in.Status
	if status == "" {
		status = StatusNew
	}

	sh := Shipment{
		ID:               id,
		CustomerName:     in.CustomerName,
		CollectionFrom:   in.CollectionFrom,
		DeliverTo:        in.DeliverTo,
		PickupDate:       in.PickupDate,
		DeliveryDate:     in.DeliveryDate,
		Status:           status,
		Type:             in.Type,
		RevenueAmount:    in.RevenueAmount,
		CostAmount:       in.CostAmount,
		DriverCommission: in.DriverCommission,

		LorryNo:      in.LorryNo,
		LorryCompany: in.LorryCompany,
		DriverName:   in.DriverName,

		DeliveryOrderNo:   in.DeliveryOrderNo,
		CompanyInvoiceNo:  in.CompanyInvoiceNo,
		CreditorInvoiceNo: in.CreditorInvoiceNo,

		PODImageURL:            in.PODImageURL,
		CreditorInvoiceFileURL: in.CreditorInvoiceFileURL,
		Remarks:                in.Remarks,

		CreatedAt:       now,
		UpdatedAt:       now,
		UpdatedByUserID: &actor.ID,
	}

	for attempt := 0; attempt < refAttempts; attempt++ {
		ref, err := s.bookingReference(ctx, now)
		if err != nil {
			return Shipment{}, err
		}
		sh.BookingReference = ref

		err = s.store.Insert(ctx, sh)
		if err == nil {
			s.log.Info("shipment created", "id", sh.ID, "ref", ref, "by", actor.ID)
			s.publish(realtime.EventCreated, sh)
			return sh, nil
		}
		if !errors.Is(err, ErrDuplicateRef) {
			return Shipment{}, fmt.Errorf("create shipment: %w", err)
		}
		s.log.Warn("booking reference collision", "ref", ref, "attempt", attempt+1)
	}
	return Shipment{}, ErrDuplicateRef
}

func (s *Service) Get(ctx context.Context, id string) (Shipment, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Shipment, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
	}
	return s.store.List(ctx, f)
}

// Update applies a partial patch and broadcasts the full updated record.
func (s *Service) Update(ctx context.Context, actor identity.User, id string, p Patch) (Shipment, error) {
	if err := p.validate(); err != nil {
		return Shipment{}, err
	}

	sh, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Shipment{}, err
	}

	p.apply(&sh)
	sh.UpdatedAt = s.now()
	sh.UpdatedByUserID = &actor.ID

	if err := s.store.Update(ctx, sh); err != nil {
		return Shipment{}, err
	}

	s.log.Info("shipment updated", "id", sh.ID, "by", actor.ID)
	s.publish(realtime.EventUpdated, sh)
	return sh, nil
}

// Delete soft-deletes a shipment. Admin only; the broadcast carries just
// the id since the record is gone from reads.
func (s *Service) Delete(ctx context.Context, actor identity.User, id string) error {
	if actor.Role != identity.RoleAdmin {
		return ErrForbidden
	}
	if err := s.store.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}

	s.log.Info("shipment deleted", "id", id, "by", actor.ID)
	s.publish(realtime.EventDeleted, map[string]string{"id": id})
	return nil
}

func (s *Service) publish(event string, payload any) {
	env, err := realtime.NewEnvelope(realtime.ChannelShipments, event, payload)
	if err != nil {
		s.log.Error("shipment event encode fail", "event", event, "err", err)
		return
	}
	s.bus.Publish(env)
}
