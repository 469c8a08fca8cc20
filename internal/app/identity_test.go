package app

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestDeriveIdentityHashIsPure(t *testing.T) {
	first := deriveIdentityHash("alice", "alice@example.com", "https://alice.dev", "10.0.0.1")
	second := deriveIdentityHash("alice", "alice@example.com", "https://alice.dev", "10.0.0.1")
	if first != second {
		t.Errorf("same inputs produced different hashes: %s vs %s", first, second)
	}
	if len(first) != sha256.Size224*2 {
		t.Errorf("expected %d hex chars, got %d", sha256.Size224*2, len(first))
	}
}

func TestDeriveIdentityHashJoinsFieldsInOrder(t *testing.T) {
	sum := sha256.Sum224([]byte("alice" + "b" + "alice@example.com" + "b" + "https://alice.dev"))
	expected := hex.EncodeToString(sum[:])

	got := deriveIdentityHash("alice", "alice@example.com", "https://alice.dev", "10.0.0.1")
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}

	// present fields keep their order even when some are missing
	sum = sha256.Sum224([]byte("alice" + "b" + "https://alice.dev"))
	expected = hex.EncodeToString(sum[:])
	got = deriveIdentityHash("alice", "", "https://alice.dev", "10.0.0.1")
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestDeriveIdentityHashIsCaseSensitive(t *testing.T) {
	lower := deriveIdentityHash("alice", "", "", "")
	upper := deriveIdentityHash("Alice", "", "", "")
	if lower == upper {
		t.Error("hash should distinguish alice from Alice")
	}
}

func TestDeriveIdentityHashFallsBackToRemoteAddr(t *testing.T) {
	a := deriveIdentityHash("", "", "", "10.0.0.1")
	b := deriveIdentityHash("", "", "", "10.0.0.2")
	if a == "" || b == "" {
		t.Fatal("remote addr fallback should produce a hash")
	}
	if a == b {
		t.Error("different remote addrs should produce different hashes")
	}

	// contact fields win over the address
	c := deriveIdentityHash("alice", "", "", "10.0.0.1")
	d := deriveIdentityHash("alice", "", "", "10.0.0.2")
	if c != d {
		t.Error("address must not leak into the hash when contact fields are set")
	}
}

func TestDeriveIdentityHashEmptyInputs(t *testing.T) {
	if got := deriveIdentityHash("", "", "", ""); got != "" {
		t.Errorf("expected empty hash, got %q", got)
	}
}

func TestDisplayAuthor(t *testing.T) {
	tests := []struct {
		name     string
		author   string
		email    string
		url      string
		expected string
	}{
		{"name wins", "alice", "alice@example.com", "https://alice.dev", "alice"},
		{"email obfuscated", "", "alice@example.com", "https://alice.dev", "alice@****.com"},
		{"subdomain keeps suffix from first dot", "", "alice@mail.example.co.uk", "", "alice@****.example.co.uk"},
		{"email without at", "", "not-an-email", "", "not-an-email"},
		{"email without dot", "", "alice@localhost", "", "alice@****"},
		{"website fallback", "", "", "https://alice.dev", "https://alice.dev"},
		{"nothing", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayAuthor(tt.author, tt.email, tt.url); got != tt.expected {
				t.Errorf("displayAuthor(%q, %q, %q) = %q, want %q", tt.author, tt.email, tt.url, got, tt.expected)
			}
		})
	}
}
