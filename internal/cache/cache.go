package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// envelope wraps cached data with its expiry bookkeeping.
type envelope struct {
	Key        string            `json:"key"`
	Data       json.RawMessage   `json:"data"`
	Timestamp  time.Time         `json:"timestamp"`
	TTLSeconds int               `json:"ttlSeconds"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Service is the analysis cache. All failures are absorbed: read or
// decode errors behave as misses, write errors are logged and swallowed,
// so callers never branch on cache health. A disabled service no-ops
// every operation and reports zero stats.
type Service struct {
	store   Store
	ttl     time.Duration
	enabled bool
	log     *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	hits   int
	misses int
}

// New creates a cache Service over store. A nil store or enabled=false
// yields a disabled service. ttlSeconds <= 0 means entries never expire.
func New(store Store, ttlSeconds int, enabled bool, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if store == nil {
		enabled = false
	}
	return &Service{
		store:   store,
		ttl:     time.Duration(ttlSeconds) * time.Second,
		enabled: enabled,
		log:     log,
		now:     time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GenerateKey derives the content-addressed cache key for (content, kind):
// hex(SHA-256(kind + ":" + content)), always 64 hex characters.
func GenerateKey(content, kind string) string {
	sum := sha256.Sum256([]byte(kind + ":" + content))
	return hex.EncodeToString(sum[:])
}

// Get loads the entry at key into out. Returns false on miss, expiry
// (expired entries are deleted as a side effect), or any read error.
func (s *Service) Get(key string, out any) bool {
	if !s.enabled {
		return false
	}
	env, ok := s.load(key)
	if !ok {
		s.count(false)
		return false
	}
	if s.expired(env) {
		if err := s.store.Delete(key); err != nil {
			s.log.Debug("deleting expired cache entry failed", "key", key, "error", err)
		}
		s.count(false)
		return false
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		s.log.Debug("decoding cache entry failed", "key", key, "error", err)
		s.count(false)
		return false
	}
	s.count(true)
	return true
}

// Set stores data at key with the configured TTL, overwriting any prior
// entry. Failures are logged and swallowed.
func (s *Service) Set(key string, data any, metadata map[string]string) {
	if !s.enabled {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		s.log.Warn("encoding cache entry failed", "key", key, "error", err)
		return
	}
	env := envelope{
		Key:        key,
		Data:       raw,
		Timestamp:  s.now(),
		TTLSeconds: int(s.ttl / time.Second),
		Metadata:   metadata,
	}
	buf, err := json.Marshal(env)
	if err != nil {
		s.log.Warn("encoding cache envelope failed", "key", key, "error", err)
		return
	}
	if err := s.store.Put(key, buf); err != nil {
		s.log.Warn("cache write failed", "key", key, "error", err)
	}
}

// Has reports whether a live entry exists at key, without counting a
// lookup or decoding the payload.
func (s *Service) Has(key string) bool {
	if !s.enabled {
		return false
	}
	env, ok := s.load(key)
	return ok && !s.expired(env)
}

// Delete removes the entry at key.
func (s *Service) Delete(key string) {
	if !s.enabled {
		return
	}
	if err := s.store.Delete(key); err != nil {
		s.log.Debug("cache delete failed", "key", key, "error", err)
	}
}

// Clear drops every entry and resets the hit/miss counters.
func (s *Service) Clear() error {
	if !s.enabled {
		return nil
	}
	keys, err := s.store.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.store.Delete(k); err != nil {
			s.log.Debug("cache delete failed during clear", "key", k, "error", err)
		}
	}
	s.ResetStats()
	return nil
}

// CleanExpired sweeps the store and deletes expired entries, returning
// how many were removed.
func (s *Service) CleanExpired() int {
	if !s.enabled {
		return 0
	}
	keys, err := s.store.Keys()
	if err != nil {
		s.log.Debug("listing cache entries failed", "error", err)
		return 0
	}
	removed := 0
	for _, k := range keys {
		env, ok := s.load(k)
		if ok && !s.expired(env) {
			continue
		}
		if err := s.store.Delete(k); err == nil {
			removed++
		}
	}
	return removed
}

// Stats is a snapshot of cache effectiveness and footprint.
type Stats struct {
	Enabled   bool    `json:"enabled"`
	Hits      int     `json:"hits"`
	Misses    int     `json:"misses"`
	HitRate   float64 `json:"hitRate"`
	Entries   int     `json:"entries"`
	SizeBytes int64   `json:"sizeBytes"`
}

// Stats reports counters since construction or the last Clear/ResetStats,
// plus the current footprint of the backing store.
func (s *Service) Stats() Stats {
	if !s.enabled {
		return Stats{}
	}
	s.mu.Lock()
	st := Stats{Enabled: true, Hits: s.hits, Misses: s.misses}
	s.mu.Unlock()

	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total) * 100
	}
	if keys, err := s.store.Keys(); err == nil {
		st.Entries = len(keys)
	}
	if size, err := s.store.SizeBytes(); err == nil {
		st.SizeBytes = size
	}
	return st
}

// ResetStats zeroes the hit/miss counters.
func (s *Service) ResetStats() {
	s.mu.Lock()
	s.hits, s.misses = 0, 0
	s.mu.Unlock()
}

func (s *Service) load(key string) (envelope, bool) {
	data, err := s.store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Debug("cache read failed", "key", key, "error", err)
		}
		return envelope{}, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Debug("cache entry corrupt", "key", key, "error", err)
		return envelope{}, false
	}
	return env, true
}

func (s *Service) expired(env envelope) bool {
	// entries written without a TTL never expire
	if env.TTLSeconds <= 0 {
		return false
	}
	return s.now().Sub(env.Timestamp) > time.Duration(env.TTLSeconds)*time.Second
}

func (s *Service) count(hit bool) {
	s.mu.Lock()
	if hit {
		s.hits++
	} else {
		s.misses++
	}
	s.mu.Unlock()
}
