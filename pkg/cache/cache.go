// Package cache provides a weighted least recently used cache.
package cache

import (
	"container/list"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrKeyExists = errors.New("key already exists in cache")

// Cache holds values up to a total weight budget, evicting the least recently
// used entries once the budget is exceeded.
type Cache[K comparable, V any] struct {
	log *logrus.Entry

	mu      sync.Mutex
	entries map[K]*list.Element
	order   *list.List // front is most recently used
	weight  int
	budget  int
}

type entry[K comparable, V any] struct {
	key    K
	value  V
	weight int
}

func New[K comparable, V any](budget int) *Cache[K, V] {
	return &Cache[K, V]{
		log:     logrus.StandardLogger().WithField("type", "cache/Cache"),
		entries: make(map[K]*list.Element),
		order:   list.New(),
		budget:  budget,
	}
}

func (c *Cache[K, V]) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *Cache[K, V]) Budget() int {
	return c.budget
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Insert adds a value. Existing keys are rejected with ErrKeyExists. An entry
// heavier than the whole budget is evicted immediately.
func (c *Cache[K, V]) Insert(key K, value V, weight int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		return ErrKeyExists
	}

	c.entries[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, weight: weight})
	c.weight += weight

	for c.weight > c.budget && c.order.Len() > 0 {
		evicted := c.order.Remove(c.order.Back()).(*entry[K, V])
		delete(c.entries, evicted.key)
		c.weight -= evicted.weight

		c.log.WithFields(logrus.Fields{
			"weight":       evicted.weight,
			"spare_weight": c.budget - c.weight,
		}).Trace("evicted cache entry")
	}
	return nil
}

// Retrieve returns the value for key and marks it as most recently used.
func (c *Cache[K, V]) Retrieve(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(element)
	return element.Value.(*entry[K, V]).value, true
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element)
	c.order.Init()
	c.weight = 0
}
