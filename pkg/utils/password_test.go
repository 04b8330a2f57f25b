package utils

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		missing  int
	}{
		{"strong", "Sturdy1!pass", 0},
		{"six lowercase letters", "abcdef", 4},
		{"no symbol", "Abcdef12", 1},
		{"no digit", "Abcdefg!", 1},
		{"no uppercase", "abcdefg1!", 1},
		{"no lowercase", "ABCDEFG1!", 1},
		{"empty", "", 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidatePassword(tc.password)
			if len(errs) != tc.missing {
				t.Fatalf("expected %d messages, got %d: %v", tc.missing, len(errs), errs)
			}
		})
	}
}

func TestValidatePasswordAcceptsEverySymbol(t *testing.T) {
	for _, symbol := range "!&$@#%()*+-/<=>?_^~" {
		password := "Abcdef1" + string(symbol)
		if errs := ValidatePassword(password); len(errs) != 0 {
			t.Fatalf("expected %q accepted, got %v", password, errs)
		}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Sturdy1!pass")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if strings.Contains(hash, "Sturdy1!pass") {
		t.Fatal("hash leaks the plaintext")
	}
	if !CheckPassword("Sturdy1!pass", hash) {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword("wrong", hash) {
		t.Fatal("expected non-matching password to fail")
	}
}
