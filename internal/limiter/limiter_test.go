package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestFixedWindow_Allow(t *testing.T) {
	mr, client := newTestClient(t)
	l := NewFixedWindow(client, "login:", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "dewi")
		if err != nil || !ok {
			t.Fatalf("attempt %d: expected allowed, got ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := l.Allow(ctx, "dewi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected third attempt to be limited")
	}

	if ok, _ := l.Allow(ctx, "budi"); !ok {
		t.Fatalf("expected other keys to be unaffected")
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _ := l.Allow(ctx, "dewi"); !ok {
		t.Fatalf("expected window to reset")
	}
}

func TestFixedWindow_DisabledWhenLimitNotPositive(t *testing.T) {
	_, client := newTestClient(t)
	l := NewFixedWindow(client, "login:", 0, time.Minute)

	for i := 0; i < 5; i++ {
		if ok, err := l.Allow(context.Background(), "dewi"); !ok || err != nil {
			t.Fatalf("expected disabled limiter to allow, got ok=%v err=%v", ok, err)
		}
	}
}

func TestFixedWindow_ReportsRedisFailure(t *testing.T) {
	mr, client := newTestClient(t)
	l := NewFixedWindow(client, "login:", 1, time.Minute)
	mr.Close()

	if _, err := l.Allow(context.Background(), "dewi"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}
