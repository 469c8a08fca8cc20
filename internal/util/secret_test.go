package util

import (
	"strings"
	"testing"
)

func TestNewSecretLengthAndAlphabet(t *testing.T) {
	secret := NewSecret(24)
	if len(secret) != 24 {
		t.Fatalf("expected 24 chars, got %d", len(secret))
	}
	for _, c := range secret {
		if !strings.ContainsRune(secretAlphabet, c) {
			t.Fatalf("unexpected character %q in secret", c)
		}
	}
}

func TestNewSecretDefaultsLength(t *testing.T) {
	if got := len(NewSecret(0)); got != 24 {
		t.Errorf("expected default length 24, got %d", got)
	}
}

func TestNewSecretVaries(t *testing.T) {
	if NewSecret(24) == NewSecret(24) {
		t.Error("two secrets should not collide")
	}
}
