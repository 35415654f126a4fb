// Package cache holds computed analysis results keyed by a content
// fingerprint, plus the LLM provider health flag.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/truecheckia/detector/internal/models"
)

// Cache is safe for concurrent use. Entries expire after the configured TTL
// and the oldest entries are evicted (LRU) once MaxEntries is reached.
type Cache struct {
	entries *expirable.LRU[string, models.AnalysisResult]

	mu          sync.Mutex
	healthOK    bool
	healthKnown bool
	healthAt    time.Time
	healthTTL   time.Duration
}

// New creates a Cache bounded by maxEntries with per-entry TTL. The provider
// health flag reverts to unknown after healthTTL so the LLM path gets
// retried periodically after a failure.
func New(maxEntries int, ttl, healthTTL time.Duration) *Cache {
	return &Cache{
		entries:   expirable.NewLRU[string, models.AnalysisResult](maxEntries, nil, ttl),
		healthTTL: healthTTL,
	}
}

// Fingerprint derives the deterministic cache key for a text+language pair.
// Text is trimmed but not case-folded: exact text matters for correctness.
func Fingerprint(text string, lang models.Language) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:16]) + ":" + string(lang)
}

// Get returns the cached result for the text+language pair, if present and
// unexpired.
func (c *Cache) Get(text string, lang models.Language) (models.AnalysisResult, bool) {
	return c.entries.Get(Fingerprint(text, lang))
}

// Set stores a result for the text+language pair.
func (c *Cache) Set(text string, lang models.Language, result models.AnalysisResult) {
	c.entries.Add(Fingerprint(text, lang), result)
}

// Invalidate removes a single entry by key.
func (c *Cache) Invalidate(key string) {
	c.entries.Remove(key)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// ProviderHealth reports the last recorded provider outcome. known is false
// when no call has been recorded yet or the record has expired.
func (c *Cache) ProviderHealth() (ok, known bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.healthKnown || time.Since(c.healthAt) > c.healthTTL {
		return false, false
	}
	return c.healthOK, true
}

// SetProviderHealth records the outcome of the most recent provider call.
func (c *Cache) SetProviderHealth(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthOK = ok
	c.healthKnown = true
	c.healthAt = time.Now()
}
