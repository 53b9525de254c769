package repo

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/cache"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}

// recordingCache is a memory cache that remembers the TTL of every cache fill.
type recordingCache struct {
	*cache.MemoryProvider

	mu   sync.Mutex
	ttls map[string]time.Duration
}

func newRecordingCache() *recordingCache {
	return &recordingCache{MemoryProvider: cache.NewMemoryProvider(), ttls: make(map[string]time.Duration)}
}

func (r *recordingCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	stored, err := r.MemoryProvider.SetNX(ctx, key, value, ttl)
	if stored {
		r.mu.Lock()
		r.ttls[key] = ttl
		r.mu.Unlock()
	}
	return stored, err
}

func (r *recordingCache) ttl(key string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ttl, ok := r.ttls[key]
	return ttl, ok
}
