// Package audit provides access to the audit_events table for
// recording and querying security-relevant account activity.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the service.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionLoginFailed    = "login_failed"
	ActionRefresh        = "refresh"
	ActionLogout         = "logout"
	ActionProfileUpdate  = "profile_update"
	ActionPasswordChange = "password_change"
)

// Event represents a single security event.
type Event struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	UserID    string         `json:"userId,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Filter controls which events to return.
type Filter struct {
	Action string // optional: filter by action
	UserID string // optional: filter by account
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// ListResult contains the paginated event results.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository defines the interface for security event operations.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores security events in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new security event repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new event. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = "evt-" + uuid.NewString()[:8]
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if event.Details != nil {
		b, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshalling event details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, action, user_id, ip, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.Action,
		nullableString(event.UserID), nullableString(event.IP),
		detailsJSON,
		event.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns events matching the filter, ordered by most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for event queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE clause is assembled from parameterised conditions (? placeholders) —
	// no user input reaches the SQL string.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_events %s", where) //nolint:gosec // parameterised conditions only
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit events: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // parameterised conditions only
		"SELECT id, action, user_id, ip, details, created_at FROM audit_events %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only iteration

	var events []Event
	for rows.Next() {
		var event Event
		var userID, ip, detailsJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&event.ID, &event.Action, &userID, &ip, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}

		if userID.Valid {
			event.UserID = userID.String
		}
		if ip.Valid {
			event.IP = ip.String
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			var details map[string]any
			if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
				event.Details = details
			}
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing audit event timestamp %q: %w", createdAt, err)
		}
		event.CreatedAt = t

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}
