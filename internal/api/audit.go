package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jmorren/authcore/internal/audit"
)

// auditChanSize is the buffer size for the async event channel.
// Entries beyond this are dropped (best-effort) to avoid back-pressure on requests.
const auditChanSize = 256

// recordEvent enqueues a security event for asynchronous write (best-effort).
// If the channel is full the entry is dropped and a warning is logged.
func (s *Server) recordEvent(r *http.Request, action, userID string, details map[string]any) {
	if s.auditRepo == nil || s.auditCh == nil {
		return
	}

	event := &audit.Event{
		Action:  action,
		UserID:  userID,
		IP:      clientIP(r),
		Details: details,
	}

	select {
	case s.auditCh <- event:
	default:
		s.logger.Warn("audit event channel full, dropping entry", "action", action)
	}
}

// drainAuditEvents reads entries from the event channel and writes them serially.
// This avoids unbounded goroutine creation and is kinder to SQLite's serial
// write model. It runs until the context is cancelled, then drains remaining
// entries.
func (s *Server) drainAuditEvents(ctx context.Context) {
	for {
		select {
		case event := <-s.auditCh:
			if err := s.auditRepo.Create(context.Background(), event); err != nil {
				s.logger.Error("audit event write failed",
					"action", event.Action,
					"error", err,
				)
			}
		case <-ctx.Done():
			// Drain remaining entries before exiting
			for {
				select {
				case event := <-s.auditCh:
					if err := s.auditRepo.Create(context.Background(), event); err != nil {
						s.logger.Error("audit event write failed during shutdown",
							"action", event.Action,
							"error", err,
						)
					}
				default:
					return
				}
			}
		}
	}
}

// handleListAuditEvents returns paginated security events with optional filters.
//
// Query parameters:
//   - action: filter by action (register, login, login_failed, refresh, ...)
//   - user_id: filter by account
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditEvents(w http.ResponseWriter, r *http.Request) error {
	if s.auditRepo == nil {
		return errNotFound("Audit logging not configured")
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: q.Get("action"),
		UserID: q.Get("user_id"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		return err
	}

	writeSuccess(w, http.StatusOK, result, "Admin: Audit events fetched successfully")
	return nil
}
