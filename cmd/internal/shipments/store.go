package shipments

import (
	"context"
	"time"
)

// Filter narrows List results. Limit <= 0 falls back to the store default;
// Offset < 0 is treated as 0.
type Filter struct {
	Status Status
	Offset int
	Limit  int
}

const defaultListLimit = 100

// Store is the shipment record collaborator.
//
// Contract notes:
// - Insert fails with ErrDuplicateRef when the booking reference is taken.
// - Reads exclude soft-deleted rows; List orders by created_at descending.
// - Update replaces the full mutable row and fails with ErrNotFound for a
//   missing or soft-deleted id.
// - CountByRefPrefix counts all rows, soft-deleted included, so reference
//   numbering never reuses a slot.
type Store interface {
	Insert(ctx context.Context, s Shipment) error
	GetByID(ctx context.Context, id string) (Shipment, error)
	List(ctx context.Context, f Filter) ([]Shipment, error)
	Update(ctx context.Context, s Shipment) error
	SoftDelete(ctx context.Context, id string, now time.Time) error
	CountByRefPrefix(ctx context.Context, prefix string) (int, error)
}
