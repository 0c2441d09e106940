// Package session implements freightd's single-active-session model.
//
// It is split into three cooperating pieces:
//
//   - AccessTokenManager: signed, time-bound access tokens (JWT HS256).
//     Verification here is purely structural: signature, issuer, expiry.
//   - Registry: the per-user session state machine persisted on the user
//     row (NoSession <-> ActiveSession <-> ExpiredSession). Expiry is
//     discovered lazily on access; there is no background sweep.
//   - Service: composes the two with the identity store. Login enforces the
//     one-live-session-per-user rule with an explicit forced-takeover
//     escape hatch, and Authenticate is the server-authoritative gate: a
//     structurally valid token is only honored while its session id still
//     matches the user's live session.
//
// The single-session rule is a usage-concurrency control, not a security
// boundary: there is no device binding, only "one login at a time".
package session
