package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash = %q, want argon2id PHC prefix", hash)
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	h2, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{name: "correct password", password: "secret1", want: true},
		{name: "wrong password", password: "secret2", want: false},
		{name: "empty password", password: "", want: false},
		{name: "case sensitive", password: "Secret1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyPassword(tt.password, hash)
			if err != nil {
				t.Fatalf("VerifyPassword() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("VerifyPassword(%q) = %v, want %v", tt.password, ok, tt.want)
			}
		})
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "not PHC", hash: "plaintext"},
		{name: "leading garbage", hash: "x$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA"},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA"},
		{name: "unsupported version", hash: "$argon2id$v=18$m=65536,t=3,p=1$c2FsdA$aGFzaA"},
		{name: "missing cost parameter", hash: "$argon2id$v=19$m=65536,t=3$c2FsdA$aGFzaA"},
		{name: "zero iterations", hash: "$argon2id$v=19$m=65536,t=0,p=1$c2FsdA$aGFzaA"},
		{name: "parallelism overflow", hash: "$argon2id$v=19$m=65536,t=3,p=300$c2FsdA$aGFzaA"},
		{name: "non-numeric cost", hash: "$argon2id$v=19$m=lots,t=3,p=1$c2FsdA$aGFzaA"},
		{name: "unknown cost parameter", hash: "$argon2id$v=19$m=65536,t=3,p=1,x=9$c2FsdA$aGFzaA"},
		{name: "bad salt encoding", hash: "$argon2id$v=19$m=65536,t=3,p=1$!!!$aGFzaA"},
		{name: "bad key encoding", hash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$!!!"},
		{name: "empty key", hash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyPassword("password", tt.hash)
			if err == nil {
				t.Fatal("VerifyPassword() expected error for malformed hash, got nil")
			}
			if !errors.Is(err, errMalformedHash) {
				t.Errorf("error = %v, want errMalformedHash", err)
			}
			if ok {
				t.Error("VerifyPassword() = true for malformed hash")
			}
		})
	}
}

func TestVerifyPassword_CostFromHash(t *testing.T) {
	// A hash created under cheaper parameters than the current defaults
	// must still verify: the cost is read from the string, not assumed.
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte("legacy-password"), salt, 1, 8*1024, 2, 32)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 8*1024, 1, 2,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	ok, err := VerifyPassword("legacy-password", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("VerifyPassword() = false, want true for matching legacy-cost hash")
	}

	ok, err = VerifyPassword("other-password", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if ok {
		t.Error("VerifyPassword() = true, want false for wrong password")
	}
}
