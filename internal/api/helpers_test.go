package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jmorren/authcore/internal/auth"
	"github.com/jmorren/authcore/internal/infrastructure/config"
	"github.com/jmorren/authcore/internal/infrastructure/logging"
)

// Test signing secrets. Distinct so cross-kind substitution fails the same
// way it would in a real deployment.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdefgh"
	testRefreshSecret = "test-refresh-secret-0123456789abcdefg"
)

// setupTestDB creates an in-memory SQLite database with the users schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close() //nolint:errcheck // Test cleanup
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

// testServer creates a server backed by an in-memory database, a quiet
// logger, and deterministic token secrets. Rate limiting is off unless a
// test enables it.
func testServer(t *testing.T) *Server {
	t.Helper()

	db := setupTestDB(t)
	repo := auth.NewUserRepository(db)
	tokens := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})

	srv, err := New(Deps{
		Config:   config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		Security: config.SecurityConfig{},
		Logger:   quietLogger(),
		UserRepo: repo,
		Tokens:   tokens,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("failed to create test server: %v", err)
	}
	return srv
}

// quietLogger discards all output so test logs stay readable.
func quietLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// createTestUser inserts a user directly through the repository.
func createTestUser(t *testing.T, repo auth.UserRepository, username, email, password string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := &auth.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

// testEnvelope mirrors the response envelope for assertions.
type testEnvelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Errors     []string        `json:"errors"`
	Stack      string          `json:"stack"`
}

// doJSON performs a JSON request against the router and decodes the envelope.
func doJSON(t *testing.T, router http.Handler, method, path, body string, mutate ...func(*http.Request)) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env testEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v; body: %s", err, w.Body.String())
	}
	return w, env
}

// loginUser registers nothing; it logs an existing user in and returns the
// access token from the body and the refresh cookie.
func loginUser(t *testing.T, router http.Handler, email, password string) (string, *http.Cookie) {
	t.Helper()

	w, env := doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"`+email+`","password":"`+password+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal login data: %v", err)
	}

	var refresh *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshTokenCookie {
			refresh = c
		}
	}
	return data.AccessToken, refresh
}

// decodeBody unmarshals a recorded response body.
func decodeBody(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}

// signTestToken mints a raw HS256 token with an arbitrary expiry, bypassing
// the token service so tests can produce already-expired tokens.
func signTestToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}

// withBearer sets the Authorization header on a request.
func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// withCookie attaches a cookie to a request.
func withCookie(name, value string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}
