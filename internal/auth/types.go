package auth

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// emailPattern is a pragmatic email format check: one @, no spaces,
// a dot in the domain part. Full RFC 5322 validation is not attempted.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Credential length requirements, checked before any repository access.
const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizeEmail lower-cases and trims an email address so lookups and the
// uniqueness constraint are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleUser is a regular account. Default for new registrations.
	RoleUser Role = "user"

	// RoleAdmin can list all accounts. Granted out-of-band (seeding);
	// there is no self-service promotion path.
	RoleAdmin Role = "admin"
)

// ValidRoles is the closed set of valid account roles.
var ValidRoles = []Role{RoleUser, RoleAdmin}

// IsValidRole returns true if the role is a member of the closed role set.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents an authenticated principal.
//
// PasswordHash is never serialised: it carries the Argon2id PHC string and
// exists only for the verify capability at login and password change.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
)
