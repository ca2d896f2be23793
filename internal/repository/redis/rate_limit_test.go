package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestRateLimitRepository_RecordAndCount(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, "rl")

	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := time.Minute

	for i := 0; i < 3; i++ {
		if err := repo.RecordAttempt(ctx, "login_ip:10.0.0.1", now, 2*window); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}

	count, err := repo.CountAttempts(ctx, "login_ip:10.0.0.1", window, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected attempts with identical timestamps to be counted separately, got %d", count)
	}

	if !server.Exists("rl:login_ip:10.0.0.1") {
		t.Fatal("expected prefixed key to exist")
	}
	if ttl := server.TTL("rl:login_ip:10.0.0.1"); ttl != 2*window {
		t.Fatalf("expected ttl %v, got %v", 2*window, ttl)
	}
}

func TestRateLimitRepository_TrimWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, "rl")

	ctx := context.Background()
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := 15 * time.Minute

	if err := repo.RecordAttempt(ctx, "login_email:a@b.com", start, 2*window); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "login_email:a@b.com", start.Add(10*time.Minute), 2*window); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	reference := start.Add(window + time.Minute)
	if err := repo.TrimWindow(ctx, "login_email:a@b.com", window, reference); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "login_email:a@b.com", window, reference)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 attempt to survive trimming, got %d", count)
	}

	oldest, ok, err := repo.OldestAttempt(ctx, "login_email:a@b.com", window, reference)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected an oldest attempt")
	}
	if diff := oldest.Sub(start.Add(10 * time.Minute)); diff > time.Millisecond || diff < -time.Millisecond {
		t.Fatalf("unexpected oldest attempt %v", oldest)
	}
}

func TestRateLimitRepository_EmptyKey(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, "")

	ctx := context.Background()
	now := time.Now()

	count, err := repo.CountAttempts(ctx, "nobody", time.Minute, now)
	if err != nil || count != 0 {
		t.Fatalf("expected zero attempts, got %d (%v)", count, err)
	}
	if _, ok, err := repo.OldestAttempt(ctx, "nobody", time.Minute, now); err != nil || ok {
		t.Fatalf("expected no oldest attempt, got ok=%v err=%v", ok, err)
	}
	if _, err := repo.CountAttempts(ctx, "nobody", 0, now); err == nil {
		t.Fatal("expected error for non-positive window")
	}
}
