// Package shipments holds the freight shipment domain: the record model,
// its persistence stores, and the service that generates booking
// references, applies partial updates, and publishes change events to the
// realtime bus after every committed write.
package shipments
