package origin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifyAcceptsExistingPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/post/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	v := NewVerifier(time.Second)
	if err := v.Verify(context.Background(), server.URL, "/post/"); err != nil {
		t.Errorf("expected existing path to verify, got %v", err)
	}
}

func TestVerifyRejectsMissingPath(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	v := NewVerifier(time.Second)
	if err := v.Verify(context.Background(), server.URL, "/nope/"); err == nil {
		t.Error("expected missing path to fail verification")
	}
}

func TestVerifyRejectsUnreachableHost(t *testing.T) {
	v := NewVerifier(100 * time.Millisecond)
	if err := v.Verify(context.Background(), "http://127.0.0.1:1", "/post/"); err == nil {
		t.Error("expected unreachable host to fail verification")
	}
}

func TestVerifyJoinsHostAndPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer server.Close()

	v := NewVerifier(time.Second)
	// trailing slash on host plus leading slash on path must not double up
	if err := v.Verify(context.Background(), server.URL+"/", "/post/2026/"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if gotPath != "/post/2026/" {
		t.Errorf("expected request path /post/2026/, got %s", gotPath)
	}
}
