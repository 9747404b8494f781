package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
)

// envelope is the uniform response shape for every endpoint, success or failure.
type envelope struct {
	Success    bool     `json:"success"`
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Stack      string   `json:"stack,omitempty"`
}

// Error is a client-visible domain failure. It carries its status code and
// message from the point of failure; the translation boundary renders it
// into the envelope exactly once.
type Error struct {
	Status  int
	Message string
	Details []string
}

func (e *Error) Error() string {
	return e.Message
}

// Error constructors. Conflict maps to 400, matching the observed contract
// of the service this API is compatible with (not a 409).
func errValidation(message string, details ...string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message, Details: details}
}

func errInvalidCredentials() *Error {
	// Identical status and message for unknown email and wrong password,
	// so responses cannot be used for account enumeration.
	return &Error{Status: http.StatusBadRequest, Message: "Invalid email or password"}
}

func errUnauthenticated(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

func errForbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

func errNotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

func errConflict(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// handlerFunc is an HTTP handler that reports failure as an error value
// instead of writing its own error response.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle wraps a handlerFunc with the single error translation boundary:
// any returned error is converted to the uniform envelope here and nowhere else.
func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.writeError(w, r, err)
		}
	}
}

// writeSuccess writes a success envelope with the given status, payload, and message.
func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{
		Success:    true,
		StatusCode: status,
		Data:       data,
		Message:    message,
		Errors:     []string{},
	})
}

// writeError translates an error into the envelope. Known *Error values keep
// their status and message; anything else becomes a 500 with a generic
// message (the real error is logged, and a stack is attached outside
// production).
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		details := apiErr.Details
		if details == nil {
			details = []string{}
		}
		writeJSON(w, apiErr.Status, envelope{
			Success:    false,
			StatusCode: apiErr.Status,
			Message:    apiErr.Message,
			Errors:     details,
		})
		return
	}

	s.logger.Error("unhandled error",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
	)

	resp := envelope{
		Success:    false,
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal Server Error",
		Errors:     []string{},
	}
	if !s.production {
		resp.Stack = err.Error() + "\n" + string(debug.Stack())
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Client may have disconnected
}
