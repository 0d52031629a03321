package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestService(t *testing.T, ttlSeconds int) *Service {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return New(store, ttlSeconds, true, nil)
}

func TestGenerateKey(t *testing.T) {
	k1 := GenerateKey("some diff content", "ai:quality")
	k2 := GenerateKey("some diff content", "ai:quality")
	assert.Equal(t, k1, k2, "same inputs produce the same key")
	assert.Len(t, k1, 64)

	assert.NotEqual(t, k1, GenerateKey("some diff content", "ai:security"),
		"kind participates in the key")
	assert.NotEqual(t, k1, GenerateKey("other diff content", "ai:quality"),
		"content participates in the key")
}

func TestRoundTrip(t *testing.T) {
	svc := newTestService(t, 3600)
	key := GenerateKey("content", "test")

	svc.Set(key, payload{Name: "run", Count: 3}, map[string]string{"kind": "test"})

	var got payload
	require.True(t, svc.Get(key, &got))
	assert.Equal(t, payload{Name: "run", Count: 3}, got)
	assert.True(t, svc.Has(key))
}

func TestGetMiss(t *testing.T) {
	svc := newTestService(t, 3600)

	var got payload
	assert.False(t, svc.Get(GenerateKey("absent", "test"), &got))

	stats := svc.Stats()
	assert.Equal(t, 0, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
}

func TestTTLExpiry(t *testing.T) {
	svc := newTestService(t, 60)

	base := time.Now()
	svc.SetClock(func() time.Time { return base })

	key := GenerateKey("content", "test")
	svc.Set(key, payload{Name: "fresh"}, nil)

	var got payload
	require.True(t, svc.Get(key, &got))

	// one second past the TTL
	svc.SetClock(func() time.Time { return base.Add(61 * time.Second) })
	assert.False(t, svc.Get(key, &got), "expired entry is a miss")
	assert.False(t, svc.Has(key), "expired entry was deleted on access")
}

func TestZeroTTLNeverExpires(t *testing.T) {
	svc := newTestService(t, 0)

	base := time.Now()
	svc.SetClock(func() time.Time { return base })

	key := GenerateKey("content", "test")
	svc.Set(key, payload{Name: "eternal"}, nil)

	svc.SetClock(func() time.Time { return base.Add(1000 * time.Hour) })
	var got payload
	assert.True(t, svc.Get(key, &got))
}

func TestDisabledService(t *testing.T) {
	svc := New(nil, 3600, true, nil)

	key := GenerateKey("content", "test")
	svc.Set(key, payload{Name: "ignored"}, nil)

	var got payload
	assert.False(t, svc.Get(key, &got))
	assert.False(t, svc.Has(key))
	assert.False(t, svc.Stats().Enabled)
}

func TestClear(t *testing.T) {
	svc := newTestService(t, 3600)

	svc.Set(GenerateKey("a", "test"), payload{Name: "a"}, nil)
	svc.Set(GenerateKey("b", "test"), payload{Name: "b"}, nil)
	require.Equal(t, 2, svc.Stats().Entries)

	require.NoError(t, svc.Clear())
	stats := svc.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, 0, stats.Hits)
	assert.Equal(t, 0, stats.Misses)
}

func TestCleanExpired(t *testing.T) {
	svc := newTestService(t, 60)

	base := time.Now()
	svc.SetClock(func() time.Time { return base })

	svc.Set(GenerateKey("old", "test"), payload{Name: "old"}, nil)

	svc.SetClock(func() time.Time { return base.Add(120 * time.Second) })
	svc.Set(GenerateKey("new", "test"), payload{Name: "new"}, nil)

	removed := svc.CleanExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, svc.Stats().Entries)

	var got payload
	assert.True(t, svc.Get(GenerateKey("new", "test"), &got))
}

func TestStatsHitRate(t *testing.T) {
	svc := newTestService(t, 3600)
	key := GenerateKey("content", "test")
	svc.Set(key, payload{Name: "x"}, nil)

	var got payload
	svc.Get(key, &got)                       // hit
	svc.Get(GenerateKey("no", "test"), &got) // miss

	stats := svc.Stats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
	assert.InDelta(t, 50.0, stats.HitRate, 1e-9)
	assert.Greater(t, stats.SizeBytes, int64(0))
}
