package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost parameters for newly created hashes. 64 MiB keeps the
// function memory-hard against GPU attacks while login latency stays in
// the tens of milliseconds on commodity hardware.
const (
	hashIterations  = 3
	hashMemoryKiB   = 64 * 1024
	hashParallelism = 1
	hashKeyLen      = 32
	hashSaltLen     = 16
)

// errMalformedHash is returned when a stored hash cannot be decoded.
// Callers treat it as a server fault, never as a wrong password.
var errMalformedHash = errors.New("malformed password hash")

// HashPassword derives an Argon2id key from password and encodes it as a
// PHC string: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<key>. The salt is
// random per call, so hashing the same password twice yields different
// strings.
func HashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, hashIterations, hashMemoryKiB, hashParallelism, hashKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		hashMemoryKiB, hashIterations, hashParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches a PHC string produced by
// HashPassword. Cost parameters are taken from the encoded string, so
// hashes created under older defaults keep verifying. The comparison is
// constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	salt, key, cost, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	keyLen := uint32(len(key)) // bounded by parsePHC
	candidate := argon2.IDKey([]byte(password), salt, cost.iterations, cost.memoryKiB, cost.parallelism, keyLen)

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// phcCost holds the Argon2id cost parameters recovered from a PHC string.
type phcCost struct {
	memoryKiB   uint32
	iterations  uint32
	parallelism uint8
}

// maxDerivedKeyLen caps the key length accepted from stored hashes.
const maxDerivedKeyLen = 512

// parsePHC decodes an argon2id PHC string into its salt, derived key and
// cost parameters. Only version 19 is accepted; every cost parameter must
// be present and non-zero.
func parsePHC(encoded string) (salt, key []byte, cost phcCost, err error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return nil, nil, cost, errMalformedHash
	}
	if fields[1] != "argon2id" {
		return nil, nil, cost, fmt.Errorf("%w: unsupported algorithm %q", errMalformedHash, fields[1])
	}

	rawVersion, ok := strings.CutPrefix(fields[2], "v=")
	if !ok {
		return nil, nil, cost, errMalformedHash
	}
	if v, convErr := strconv.Atoi(rawVersion); convErr != nil || v != argon2.Version {
		return nil, nil, cost, fmt.Errorf("%w: unsupported version %q", errMalformedHash, rawVersion)
	}

	for _, pair := range strings.Split(fields[3], ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, nil, cost, fmt.Errorf("%w: cost parameter %q", errMalformedHash, pair)
		}
		n, convErr := strconv.ParseUint(raw, 10, 32)
		if convErr != nil {
			return nil, nil, cost, fmt.Errorf("%w: cost parameter %q", errMalformedHash, pair)
		}
		switch name {
		case "m":
			cost.memoryKiB = uint32(n)
		case "t":
			cost.iterations = uint32(n)
		case "p":
			if n == 0 || n > 255 {
				return nil, nil, cost, fmt.Errorf("%w: cost parameter %q", errMalformedHash, pair)
			}
			cost.parallelism = uint8(n)
		default:
			return nil, nil, cost, fmt.Errorf("%w: unknown cost parameter %q", errMalformedHash, name)
		}
	}
	if cost.memoryKiB == 0 || cost.iterations == 0 || cost.parallelism == 0 {
		return nil, nil, cost, fmt.Errorf("%w: incomplete cost parameters", errMalformedHash)
	}

	salt, err = base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return nil, nil, cost, fmt.Errorf("%w: decoding salt: %v", errMalformedHash, err)
	}
	key, err = base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil {
		return nil, nil, cost, fmt.Errorf("%w: decoding key: %v", errMalformedHash, err)
	}
	if len(key) == 0 || len(key) > maxDerivedKeyLen {
		return nil, nil, cost, fmt.Errorf("%w: key length %d", errMalformedHash, len(key))
	}

	return salt, key, cost, nil
}
