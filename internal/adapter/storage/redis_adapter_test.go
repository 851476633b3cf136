package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestNextSequence_StartsAtOne(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, "seq:task:PCK:test")

	for want := int64(1); want <= 3; want++ {
		got, err := adapter.NextSequence(ctx, "task:PCK:test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	ttl := client.TTL(ctx, "seq:task:PCK:test").Val()
	if ttl <= 0 {
		t.Errorf("expected sequence key to carry a TTL, got %v", ttl)
	}
}

func TestNextSequence_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, "seq:concurrent-test")

	const total = 100
	var (
		maxSeen atomic.Int64
		mu      sync.Mutex
		seen    = make(map[int64]bool)
		wg      sync.WaitGroup
	)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := adapter.NextSequence(ctx, "concurrent-test")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
			for {
				cur := maxSeen.Load()
				if v <= cur || maxSeen.CompareAndSwap(cur, v) {
					break
				}
			}
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Errorf("expected %d distinct values, got %d", total, len(seen))
	}
	if maxSeen.Load() != total {
		t.Errorf("expected max %d, got %d", total, maxSeen.Load())
	}
}

func TestSeedSequence(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, "seq:seed-test")

	if err := adapter.SeedSequence(ctx, "seed-test", 41); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Lower values never move the counter back
	if err := adapter.SeedSequence(ctx, "seed-test", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := adapter.NextSequence(ctx, "seed-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestClaim_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, "idempotency:concurrent-idem-key")

	var successCount atomic.Int32
	var wg sync.WaitGroup
	concurrency := 100

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.Claim(ctx, "concurrent-idem-key")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	// Only one should succeed
	if successCount.Load() != 1 {
		t.Errorf("expected exactly 1 success, got %d", successCount.Load())
	}
}

func TestSeedSequence_ConcurrentWithIssue(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, "seq:seed-race")

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := adapter.SeedSequence(ctx, "seed-race", 20); err != nil {
				t.Errorf("seed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			n, err := adapter.NextSequence(ctx, "seed-race")
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[n] {
				t.Errorf("number %d issued twice", n)
			}
			seen[n] = true
		}()
	}
	wg.Wait()
}

func TestClaim_ReleaseAllowsReclaim(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, "idempotency:release-key")

	if ok, _ := adapter.Claim(ctx, "release-key"); !ok {
		t.Fatal("expected first claim to succeed")
	}
	if err := adapter.Release(ctx, "release-key"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := adapter.Claim(ctx, "release-key"); !ok {
		t.Error("expected claim after release to succeed")
	}
}
