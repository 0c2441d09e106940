package shipments

import "errors"

var (
	// ErrInvalidInput reports a create or update payload that fails domain
	// validation.
	ErrInvalidInput = errors.New("shipments: invalid input")

	// ErrNotFound reports a lookup for a missing or soft-deleted shipment.
	ErrNotFound = errors.New("shipments: not found")

	// ErrDuplicateRef reports a booking reference collision that survived
	// the bounded retry loop.
	ErrDuplicateRef = errors.New("shipments: duplicate booking reference")

	// ErrForbidden reports an operation the caller's role does not permit.
	ErrForbidden = errors.New("shipments: forbidden")
)
