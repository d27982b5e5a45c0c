package projection

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"cashplan/internal/cache"
	"cashplan/internal/core"
)

// Memoizer caches Expand results by a hash of its inputs. Expand is pure, so
// identical inputs always produce identical results. Cached results are
// shared between callers and must not be mutated.
type Memoizer struct {
	cache *cache.LRUCache[Result]
}

// NewMemoizer creates a memoizer backed by an LRU of the given size and TTL.
func NewMemoizer(size int, ttl time.Duration) *Memoizer {
	return &Memoizer{cache: cache.NewLRUCache[Result](size, ttl)}
}

// Expand returns the cached projection for the inputs, computing it on a miss.
// The second return value reports a cache hit.
func (m *Memoizer) Expand(items []core.LineItem, start, end core.Date) (Result, bool) {
	key, err := InputHash(items, start, end)
	if err != nil {
		return Expand(items, start, end), false
	}
	if res, ok := m.cache.Get(key); ok {
		return res, true
	}
	res := Expand(items, start, end)
	m.cache.CleanExpired()
	m.cache.Set(key, res)
	return res, false
}

// Size returns the number of cached projections.
func (m *Memoizer) Size() int {
	return m.cache.Size()
}

// Stats returns the underlying cache counters.
func (m *Memoizer) Stats() cache.Stats {
	return m.cache.Stats()
}

// InputHash is a stable SHA-256 over the projection inputs.
func InputHash(items []core.LineItem, start, end core.Date) (string, error) {
	payload := struct {
		Items []core.LineItem `json:"items"`
		Start core.Date       `json:"start"`
		End   core.Date       `json:"end"`
	}{items, start, end}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
