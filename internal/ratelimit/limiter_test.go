package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestLimiter(t *testing.T, max int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	limiter, err := NewLimiter("redis://"+s.Addr(), max, window)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	return limiter, s
}

func TestNewLimiter(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	limiter, err := NewLimiter("redis://"+s.Addr(), 5, time.Minute)
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}
	defer limiter.Close()

	ctx := context.Background()
	if err := limiter.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestAllowWithinBudget(t *testing.T) {
	limiter, s := setupTestLimiter(t, 3, time.Minute)
	defer limiter.Close()
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow %d failed: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if allowed {
		t.Error("attempt over budget should be denied")
	}
}

func TestAllowResetsAfterWindow(t *testing.T) {
	limiter, s := setupTestLimiter(t, 1, time.Minute)
	defer limiter.Close()
	defer s.Close()

	ctx := context.Background()
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); !allowed {
		t.Fatal("first attempt should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); allowed {
		t.Fatal("second attempt should be denied")
	}

	s.FastForward(2 * time.Minute)

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow after window failed: %v", err)
	}
	if !allowed {
		t.Error("budget should reset after the window elapses")
	}
}

func TestAllowIsolatesAddresses(t *testing.T) {
	limiter, s := setupTestLimiter(t, 1, time.Minute)
	defer limiter.Close()
	defer s.Close()

	ctx := context.Background()
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); !allowed {
		t.Fatal("first address should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); allowed {
		t.Fatal("first address should now be denied")
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.2")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !allowed {
		t.Error("a different address must have its own budget")
	}
}
