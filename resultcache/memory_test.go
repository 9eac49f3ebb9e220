package resultcache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemory(ttl time.Duration, size int) (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMemory(ttl, size)
	m.now = clock.now
	return m, clock
}

func TestKey(t *testing.T) {
	a := Key("https://example.com/", "Plumbing  Services")
	b := Key("https://example.com/", "plumbing services")
	if a != b {
		t.Errorf("keyword spacing and case should not change the key: %s vs %s", a, b)
	}
	if a == Key("https://example.com/", "") {
		t.Error("different keywords should produce different keys")
	}
	if a == Key("https://example.com/about", "plumbing services") {
		t.Error("different URLs should produce different keys")
	}
	if len(a) != len(keyPrefix)+32 {
		t.Errorf("unexpected key %q", a)
	}
}

func TestMemoryGetSet(t *testing.T) {
	m, _ := newTestMemory(time.Minute, 10)
	defer m.Close()
	ctx := context.Background()

	if _, ok := m.Get(ctx, "missing"); ok {
		t.Fatal("expected a miss for an unknown key")
	}
	m.Set(ctx, "k", []byte(`{"score":80}`))
	data, ok := m.Get(ctx, "k")
	if !ok || string(data) != `{"score":80}` {
		t.Fatalf("Get = %q, %v", data, ok)
	}

	s := m.Stats()
	if s.Backend != "memory" || s.Entries != 1 || s.Hits != 1 || s.Misses != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestMemoryCopiesData(t *testing.T) {
	m, _ := newTestMemory(time.Minute, 10)
	defer m.Close()
	ctx := context.Background()

	buf := []byte("original")
	m.Set(ctx, "k", buf)
	copy(buf, "mutated!")

	data, _ := m.Get(ctx, "k")
	if string(data) != "original" {
		t.Errorf("cache shared the caller's buffer: %q", data)
	}

	copy(data, "changed!")
	again, _ := m.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("cache shared the returned buffer: %q", again)
	}
}

func TestMemoryExpires(t *testing.T) {
	m, clock := newTestMemory(time.Minute, 10)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"))
	clock.advance(59 * time.Second)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("entry expired too early")
	}
	clock.advance(2 * time.Second)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("expected entry to expire after the TTL")
	}
}

func TestMemoryEvictsOldest(t *testing.T) {
	m, clock := newTestMemory(time.Hour, 3)
	defer m.Close()
	ctx := context.Background()

	for i := range 5 {
		m.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"))
		clock.advance(time.Second)
	}

	if n := m.Stats().Entries; n != 3 {
		t.Fatalf("expected 3 entries, got %d", n)
	}
	for _, key := range []string{"k0", "k1"} {
		if _, ok := m.Get(ctx, key); ok {
			t.Errorf("%s should have been evicted", key)
		}
	}
	for _, key := range []string{"k2", "k3", "k4"} {
		if _, ok := m.Get(ctx, key); !ok {
			t.Errorf("%s should still be cached", key)
		}
	}
}

func TestMemoryCleanupDropsExpiredFirst(t *testing.T) {
	m, clock := newTestMemory(time.Minute, 2)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "old", []byte("v"))
	clock.advance(2 * time.Minute)
	m.Set(ctx, "a", []byte("v"))
	m.Set(ctx, "b", []byte("v"))

	if _, ok := m.Get(ctx, "a"); !ok {
		t.Error("fresh entry a was evicted instead of the expired one")
	}
	if _, ok := m.Get(ctx, "b"); !ok {
		t.Error("fresh entry b was evicted instead of the expired one")
	}
}

func TestMemoryCloseIsIdempotent(t *testing.T) {
	m := NewMemory(time.Minute, 1)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	r, err := NewRedis(RedisOptions{Addr: addr, TTL: time.Minute})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer r.Close()
	ctx := context.Background()

	key := Key("https://example.com/redis-test", "")
	r.Set(ctx, key, []byte("cached"))
	data, ok := r.Get(ctx, key)
	if !ok || string(data) != "cached" {
		t.Fatalf("Get = %q, %v", data, ok)
	}
	if _, ok := r.Get(ctx, Key("https://example.com/never-set", "")); ok {
		t.Error("expected a miss")
	}
}
