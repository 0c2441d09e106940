// Package password provides password hashing and verification for freightd.
//
// It wraps bcrypt and includes:
// - A hard 72-byte input guard (bcrypt truncates longer inputs silently,
//   which would make any two passwords with the same first 72 bytes match)
// - Password policy validation (length bounds)
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify.
// - Comparison is constant-time via bcrypt itself.
package password
