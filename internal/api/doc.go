// Package api implements the HTTP REST API for the authentication service.
//
// This package provides:
//   - REST endpoints for registration, login, session refresh, and profile management
//   - JWT authentication with cookie-then-header token extraction
//   - Role-gated admin endpoints
//   - Middleware stack (request ID, logging, recovery, security headers, CORS, rate limiting)
//
// # Response Envelope
//
// Every endpoint, success or failure, responds with the same JSON envelope:
//
//	{"success": bool, "statusCode": int, "data": ..., "message": "...", "errors": [...]}
//
// Handlers return errors instead of writing failure responses themselves;
// the handle() wrapper translates them into the envelope at a single point.
// Outside production a stack trace is attached to 500 responses.
//
// # Security
//
// Access tokens arrive via the accessToken cookie or an Authorization Bearer
// header (cookie wins). Refresh tokens live only in an HttpOnly cookie and
// are verified against a separate signing secret. Login failures are
// indistinguishable between unknown email and wrong password.
package api
