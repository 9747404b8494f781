package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
)

// Seed admin identity created on first boot.
const (
	SeedAdminUsername = "admin"
	SeedAdminEmail    = "admin@example.com"

	// seedPasswordBytes is the number of random bytes for the seed admin password.
	seedPasswordBytes = 16
)

// SeedAdmin creates the initial admin account on first boot if it does not
// already exist. The generated password is logged — it must be changed
// immediately. Returns the generated password (empty string if seeding was
// skipped).
func SeedAdmin(ctx context.Context, userRepo UserRepository, logger *slog.Logger) (string, error) {
	_, err := userRepo.GetByEmail(ctx, SeedAdminEmail)
	if err == nil {
		logger.Info("admin account exists, skipping seed", "email", SeedAdminEmail)
		return "", nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return "", fmt.Errorf("checking for admin account: %w", err)
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &User{
		Username:     SeedAdminUsername,
		Email:        SeedAdminEmail,
		PasswordHash: hash,
		Role:         RoleAdmin,
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"email", SeedAdminEmail,
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
