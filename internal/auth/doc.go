// Package auth provides the credential and session core for authcore.
//
// It implements a two-tier role model (user → admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Stateless JWT access/refresh tokens signed with independent secrets
//   - A SQLite-backed principal repository with case-insensitive email
//     uniqueness enforced at the storage boundary
//   - First-boot admin seeding with a generated one-time password
//
// Access tokens are short-lived and verified by signature and expiry alone;
// refresh tokens are longer-lived, confined to an HTTP-only cookie by the
// API layer, and exchanged for new access tokens. Neither token kind is
// persisted server-side: logout is cookie clearing, and an unexpired token
// captured before logout remains valid until its natural expiry. This is a
// deliberate trade-off of the stateless design.
package auth
