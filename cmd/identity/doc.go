// Package identity holds the freightd security principal (staff users) and
// its persistence boundary.
//
// A user carries at most one live login session, tracked directly on the user
// row as an (active_session_id, active_session_expires_at) pair. The two
// fields are always written together: both set, or both cleared.
package identity
