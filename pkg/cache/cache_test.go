package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestBatchIndex(t *testing.T) {
	k := NewDefaultKeyer()
	tests := []struct {
		key    string
		want   int64
		wantOK bool
	}{
		{k.BatchKey("cat", BatchKeyOpts{}, 0), 0, true},
		{k.BatchKey("cat", BatchKeyOpts{}, 1234), 1234, true},
		{NewScopedKeyer(k, "train:").BatchKey("cat", BatchKeyOpts{}, 7), 7, true},
		{"batch:abc:-1", 0, false},
		{"batch:abc:x", 0, false},
		{"other:abc:3", 0, false},
		{"nocolon", 0, false},
	}
	for _, tt := range tests {
		got, ok := BatchIndex(tt.key)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("BatchIndex(%q) = %d, %v, want %d, %v", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	base := BatchKeyOpts{StampSize: 24, MaxNumber: 4, BatchSize: 8, Bands: []string{"g", "r", "i"}, Seed: 1}

	key := k.BatchKey("cat", base, 0)
	if !strings.HasPrefix(key, "batch:") || !strings.HasSuffix(key, ":0") {
		t.Errorf("BatchKey = %s, want batch:<digest>:0", key)
	}
	if next := k.BatchKey("cat", base, 1); strings.TrimSuffix(next, ":1") != strings.TrimSuffix(key, ":0") {
		t.Error("batches of one run should share the digest")
	}
	if key != k.BatchKey("cat", base, 0) {
		t.Error("BatchKey should be deterministic")
	}

	noisy := base
	noisy.AddNoise = true
	reordered := base
	reordered.Bands = []string{"i", "r", "g"}

	others := map[string]string{
		"index":   k.BatchKey("cat", base, 1),
		"catalog": k.BatchKey("other", base, 0),
		"noise":   k.BatchKey("cat", noisy, 0),
		"bands":   k.BatchKey("cat", reordered, 0),
	}
	for name, other := range others {
		if other == key {
			t.Errorf("changing %s should change the key", name)
		}
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "train:")

	want := "train:" + inner.BatchKey("cat", BatchKeyOpts{}, 2)
	if got := scoped.BatchKey("cat", BatchKeyOpts{}, 2); got != want {
		t.Errorf("ScopedKeyer BatchKey = %s, want %s", got, want)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.BatchKey("cat", BatchKeyOpts{}, 0)
	if !strings.HasPrefix(key, "prefix:batch:") {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Errorf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "a", []byte("alpha"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "a")
	if err != nil || !hit || string(data) != "alpha" {
		t.Errorf("Get(a) = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entry should be gone after Delete")
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Errorf("Delete of missing key should succeed: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should be a miss")
	}
	if _, err := os.Stat(c.path("short")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	path := c.path("bad")
	os.MkdirAll(filepath.Dir(path), 0o755)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
		t.Errorf("corrupt entry = hit %v, err %v, want miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Error("entries should be gone after Clear")
	}
}

func TestRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "http://not-redis"); err == nil {
		t.Error("NewRedisCache should reject a non-redis URL")
	}
}

func TestRedisCacheUnavailable(t *testing.T) {
	fastBackoff(t)

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCacheFromClient(client, "test:")
	defer c.Close()

	_, _, err := c.Get(context.Background(), "k")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Get error = %v, want ErrNetwork", err)
	}
	if c.key("k") != "test:k" {
		t.Errorf("key = %s, want test:k", c.key("k"))
	}
}

func TestMongoCacheBadURI(t *testing.T) {
	if _, err := NewMongoCache(context.Background(), "http://not-mongo"); err == nil {
		t.Error("NewMongoCache should reject a non-mongodb URI")
	}
}

func TestMongoEntryExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"no expiry", time.Time{}, false},
		{"future", time.Now().Add(time.Hour), false},
		{"past", time.Now().Add(-time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entryExpired(tt.expiresAt); got != tt.want {
				t.Errorf("entryExpired = %v, want %v", got, tt.want)
			}
		})
	}
}

func fastBackoff(t *testing.T) {
	old := DefaultBackoff
	DefaultBackoff = Backoff{Attempts: 3, Delay: time.Millisecond}
	t.Cleanup(func() { DefaultBackoff = old })
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) || !errors.Is(err, ErrNetwork) {
		t.Errorf("Retryable(ErrNetwork) = %v, want a retryable ErrNetwork", err)
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error() = %q", err.Error())
	}
	if IsRetryable(ErrNetwork) {
		t.Error("unmarked errors are not retryable")
	}
}

func TestBackoffRetry(t *testing.T) {
	permanent := errors.New("permanent")
	tests := []struct {
		name      string
		attempts  int
		failures  int // leading failures before success
		fail      error
		wantCalls int
		wantErr   error
	}{
		{"first try", 3, 0, nil, 1, nil},
		{"permanent error", 3, 5, permanent, 1, permanent},
		{"recovers", 3, 2, Retryable(ErrNetwork), 3, nil},
		{"exhausted", 3, 5, Retryable(ErrNetwork), 3, ErrNetwork},
		{"zero attempts calls once", 0, 5, Retryable(ErrNetwork), 1, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Backoff{Attempts: tt.attempts, Delay: time.Millisecond, Max: 2 * time.Millisecond}
			calls := 0
			err := b.Retry(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					return tt.fail
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
