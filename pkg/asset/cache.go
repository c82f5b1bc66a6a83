package asset

import (
	"sync"

	"github.com/Faultbox/rigport/pkg/skeletal"
)

// Cache holds assembled models by path.
type Cache struct {
	models map[string]*skeletal.Model
	mu     sync.RWMutex

	hits   int
	misses int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		models: make(map[string]*skeletal.Model),
	}
}

// Get returns the cached model for path.
func (c *Cache) Get(path string) (*skeletal.Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.models[path]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return m, ok
}

// Set stores a model.
func (c *Cache) Set(path string, m *skeletal.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[path] = m
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
