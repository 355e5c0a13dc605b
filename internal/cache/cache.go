package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"policyrag/internal/domain"
)

// ResponseCache memoizes query responses by question and top-K
type ResponseCache struct {
	cache *gocache.Cache
}

// NewResponseCache creates a new in-memory response cache
func NewResponseCache(defaultTTL, cleanupInterval time.Duration) *ResponseCache {
	return &ResponseCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Key generates a cache key from a question and result limit.
// Questions differing only in case or surrounding whitespace share a key.
func Key(question string, topK int) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	hash := sha256.Sum256([]byte(normalized + "|" + strconv.Itoa(topK)))
	return "policyrag:v1:" + hex.EncodeToString(hash[:])
}

// Get returns a copy of the cached response, if any
func (c *ResponseCache) Get(question string, topK int) (*domain.QueryResponse, bool) {
	val, found := c.cache.Get(Key(question, topK))
	if !found {
		return nil, false
	}
	resp, ok := val.(domain.QueryResponse)
	if !ok {
		return nil, false
	}
	return clone(resp), true
}

// Set stores a response with the default TTL
func (c *ResponseCache) Set(question string, topK int, resp *domain.QueryResponse) {
	if resp == nil {
		return
	}
	c.cache.SetDefault(Key(question, topK), *clone(*resp))
}

// Flush drops every cached response
func (c *ResponseCache) Flush() {
	c.cache.Flush()
}

// Len returns the number of cached responses
func (c *ResponseCache) Len() int {
	return c.cache.ItemCount()
}

func clone(resp domain.QueryResponse) *domain.QueryResponse {
	out := resp
	out.Sources = make([]domain.Source, len(resp.Sources))
	copy(out.Sources, resp.Sources)
	if resp.Conflict != nil {
		info := *resp.Conflict
		info.ConflictingSources = make([]string, len(resp.Conflict.ConflictingSources))
		copy(info.ConflictingSources, resp.Conflict.ConflictingSources)
		out.Conflict = &info
	}
	return &out
}
