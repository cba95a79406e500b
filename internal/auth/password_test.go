package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword_Verify(t *testing.T) {
	hash, err := HashPassword("open-sesame")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !IsHashed(hash) {
		t.Fatalf("hash should start with $argon2id$, got %q", hash)
	}

	tests := []struct {
		candidate string
		want      bool
	}{
		{candidate: "open-sesame", want: true},
		{candidate: "open-sesame ", want: false},
		{candidate: "", want: false},
	}
	for _, tt := range tests {
		ok, err := VerifyPassword(tt.candidate, hash)
		if err != nil {
			t.Fatalf("VerifyPassword(%q) error = %v", tt.candidate, err)
		}
		if ok != tt.want {
			t.Errorf("VerifyPassword(%q) = %v, want %v", tt.candidate, ok, tt.want)
		}
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	hash1, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	hash2, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash1 == hash2 {
		t.Error("two hashes of the same password should have different salts")
	}
}

func TestHashPassword_PHCFormat(t *testing.T) {
	hash, err := HashPassword("test")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("PHC format should have 6 $-delimited parts, got %d: %q", len(parts), hash)
	}
	if parts[2] != "v=19" {
		t.Errorf("version should be v=19, got %q", parts[2])
	}
	if parts[3] != "m=65536,t=3,p=1" {
		t.Errorf("params should be m=65536,t=3,p=1, got %q", parts[3])
	}
}

func TestVerifyPassword_InvalidFormat(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not PHC", "plaintext"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=1$salt$hash"},
		{"too few parts", "$argon2id$v=19$m=65536,t=3,p=1"},
		{"bad salt", "$argon2id$v=19$m=65536,t=3,p=1$!!!$aGFzaA"},
		{"old argon2 version", "$argon2id$v=16$m=65536,t=3,p=1$c2FsdA$aGFzaA"},
		{"bad cost field", "$argon2id$v=19$memory=big$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyPassword("password", tt.hash)
			if !errors.Is(err, ErrInvalidHash) {
				t.Errorf("VerifyPassword() error = %v, want ErrInvalidHash", err)
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name      string
		candidate string
		stored    string
		want      bool
	}{
		{name: "hash match", candidate: "hunter2", stored: hash, want: true},
		{name: "hash mismatch", candidate: "hunter3", stored: hash, want: false},
		{name: "plaintext match", candidate: "admin", stored: "admin", want: true},
		{name: "plaintext mismatch", candidate: "Admin", stored: "admin", want: false},
		{name: "empty stored never matches", candidate: "", stored: "", want: false},
		{name: "malformed hash never matches", candidate: "$argon2id$x", stored: "$argon2id$x", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkPassword(tt.candidate, tt.stored); got != tt.want {
				t.Errorf("checkPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
