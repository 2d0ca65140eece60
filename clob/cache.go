package clob

import "sync"

// tokenCache memoizes per-token venue facts that stay fixed for the life of
// a market, such as tick size and the neg-risk flag.
type tokenCache[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

func newTokenCache[V any]() *tokenCache[V] {
	return &tokenCache[V]{m: make(map[string]V)}
}

func (c *tokenCache[V]) get(tokenID string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[tokenID]
	return v, ok
}

func (c *tokenCache[V]) put(tokenID string, v V) {
	c.mu.Lock()
	c.m[tokenID] = v
	c.mu.Unlock()
}

func (c *tokenCache[V]) clear() {
	c.mu.Lock()
	c.m = make(map[string]V)
	c.mu.Unlock()
}
