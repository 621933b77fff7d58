package user

import (
	"strings"
	"testing"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("p@ssw0rd")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !VerifyPassword("p@ssw0rd", hash) {
		t.Fatalf("expected verify ok")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatalf("expected verify fail")
	}
}

func TestGeneratePasswordShape(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		pw, err := GeneratePassword(GeneratedPasswordLength)
		if err != nil {
			t.Fatalf("GeneratePassword: %v", err)
		}
		if len(pw) != GeneratedPasswordLength {
			t.Fatalf("length %d, want %d", len(pw), GeneratedPasswordLength)
		}
		if !strings.ContainsAny(pw, lowerChars) ||
			!strings.ContainsAny(pw, upperChars) ||
			!strings.ContainsAny(pw, digitChars) ||
			!strings.ContainsAny(pw, symbolChars) {
			t.Fatalf("password missing required character class: %q", pw)
		}
		if _, dup := seen[pw]; dup {
			t.Fatalf("duplicate generated password: %q", pw)
		}
		seen[pw] = struct{}{}
	}
}

func TestGeneratePasswordMinimumLength(t *testing.T) {
	pw, err := GeneratePassword(4)
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if len(pw) < 12 {
		t.Fatalf("expected floor of 12 chars, got %d", len(pw))
	}
}

func TestGenerateResetToken(t *testing.T) {
	token, hash, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken: %v", err)
	}
	if token == "" || hash == "" {
		t.Fatalf("expected token and hash")
	}
	if HashResetToken(token) != hash {
		t.Fatalf("hash mismatch")
	}
}
