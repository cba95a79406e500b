package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const phcPrefix = "$argon2id$"

// Cost settings for newly hashed passwords. Stored hashes carry their own.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

var b64 = base64.RawStdEncoding

// phcHash is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type phcHash struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h phcHash) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		phcPrefix, argon2.Version, h.memory, h.time, h.threads,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

// derive computes the key for password using h's salt and cost.
func (h phcHash) derive(password string) []byte {
	//nolint:gosec // G115: key lengths are tiny
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
}

func parsePHC(s string) (phcHash, error) {
	var h phcHash

	fields := strings.Split(s, "$")
	if len(fields) != 6 || fields[0] != "" {
		return h, fmt.Errorf("%w: want 6 $-separated fields, got %d", ErrInvalidHash, len(fields))
	}
	if fields[1] != "argon2id" {
		return h, fmt.Errorf("%w: algorithm %q", ErrInvalidHash, fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return h, fmt.Errorf("%w: version field %q", ErrInvalidHash, fields[2])
	}
	if version != argon2.Version {
		return h, fmt.Errorf("%w: argon2 version %d", ErrInvalidHash, version)
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return h, fmt.Errorf("%w: cost field %q", ErrInvalidHash, fields[3])
	}

	var err error
	if h.salt, err = b64.DecodeString(fields[4]); err != nil {
		return h, fmt.Errorf("%w: salt: %w", ErrInvalidHash, err)
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil {
		return h, fmt.Errorf("%w: key: %w", ErrInvalidHash, err)
	}
	return h, nil
}

// HashPassword returns an argon2id PHC string for password, suitable for
// the users file.
func HashPassword(password string) (string, error) {
	h := phcHash{
		time:    argonTime,
		memory:  argonMemory,
		threads: argonThreads,
		salt:    make([]byte, argonSaltLen),
		key:     make([]byte, argonKeyLen),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// VerifyPassword reports whether password matches encoded. It returns
// ErrInvalidHash when encoded is not an argon2id PHC string.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, h.derive(password)) == 1, nil
}

// IsHashed reports whether stored is in argon2id form rather than
// plaintext.
func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, phcPrefix)
}

// checkPassword matches candidate against a users-file entry, which is
// either a hash or plaintext. Empty entries and broken hashes never match.
func checkPassword(candidate, stored string) bool {
	switch {
	case IsHashed(stored):
		ok, err := VerifyPassword(candidate, stored)
		return err == nil && ok
	case stored == "":
		return false
	default:
		return subtle.ConstantTimeCompare([]byte(candidate), []byte(stored)) == 1
	}
}
