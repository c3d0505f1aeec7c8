package limiter

import (
	"context"
	"testing"
	"time"
)

func TestMemory_BlocksAfterMaxFails(t *testing.T) {
	t.Parallel()
	m, err := NewMemory(16, Policy{Window: time.Minute, MaxFails: 3, BlockFor: time.Minute})
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()
	ip := HashIP("10.0.0.1:5000")

	for i := 0; i < 2; i++ {
		if blocked, _, _ := m.Failure(ctx, "an@example.com", ip); blocked {
			t.Fatalf("blocked too early at attempt %d", i+1)
		}
	}
	blocked, d, _ := m.Failure(ctx, "an@example.com", ip)
	if !blocked || d != time.Minute {
		t.Fatalf("want block for 1m, got blocked=%v d=%v", blocked, d)
	}
	if ok, retry, _ := m.Allow(ctx, "an@example.com", ip); ok || retry <= 0 {
		t.Fatalf("Allow during block: ok=%v retry=%v", ok, retry)
	}
	if ok, _, _ := m.Allow(ctx, "other@example.com", ip); !ok {
		t.Fatalf("other email must not be blocked")
	}

	now = now.Add(2 * time.Minute)
	if ok, _, _ := m.Allow(ctx, "an@example.com", ip); !ok {
		t.Fatalf("block must expire")
	}
}

func TestMemory_SuccessResets(t *testing.T) {
	t.Parallel()
	m, _ := NewMemory(16, Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Minute})
	ctx := context.Background()
	ip := HashIP("10.0.0.1")

	_, _, _ = m.Failure(ctx, "an@example.com", ip)
	_ = m.Success(ctx, "an@example.com", ip)
	if blocked, _, _ := m.Failure(ctx, "an@example.com", ip); blocked {
		t.Fatalf("counter must restart after success")
	}
}

func TestMemory_WindowRestartsCount(t *testing.T) {
	t.Parallel()
	m, _ := NewMemory(16, Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Minute})
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()
	ip := HashIP("10.0.0.1")

	_, _, _ = m.Failure(ctx, "an@example.com", ip)
	now = now.Add(5 * time.Minute)
	if blocked, _, _ := m.Failure(ctx, "an@example.com", ip); blocked {
		t.Fatalf("stale failures must not count")
	}
}

func TestNewMemory_BadSize(t *testing.T) {
	t.Parallel()
	if _, err := NewMemory(0, DefaultPolicy); err == nil {
		t.Fatalf("want error for zero size")
	}
}
