package cache

import (
	"container/list"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrKeyExists is returned when inserting a key that's already cached
var ErrKeyExists = errors.New("key already exists in cache")

// Cache is a weight bounded LRU cache that is safe for concurrent use.
// Inserting beyond the budget evicts the least recently used entries.
type Cache[V any] interface {
	GetWeight() int
	GetBudget() int
	Insert(key string, value V, weight int) error
	Retrieve(key string) (V, bool)
	Clear()
}

type entry[V any] struct {
	key    string
	value  V
	weight int
}

type cache[V any] struct {
	log *logrus.Entry

	mu     sync.Mutex
	order  *list.List
	lookup map[string]*list.Element
	weight int
	budget int
}

// NewCache returns a new cache with the given weight budget
func NewCache[V any](budget int) Cache[V] {
	return &cache[V]{
		log:    logrus.StandardLogger().WithField("type", "cache"),
		order:  list.New(),
		lookup: make(map[string]*list.Element),
		budget: budget,
	}
}

// GetWeight returns the current total weight of cached entries
func (c *cache[V]) GetWeight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

// GetBudget returns the weight budget of the cache
func (c *cache[V]) GetBudget() int {
	return c.budget
}

// Insert adds a new entry as the most recently used. Existing keys are never
// overwritten.
func (c *cache[V]) Insert(key string, value V, weight int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := c.lookup[key]; found {
		return ErrKeyExists
	}

	c.lookup[key] = c.order.PushFront(&entry[V]{
		key:    key,
		value:  value,
		weight: weight,
	})
	c.weight += weight

	for c.weight > c.budget {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}

		evicted := c.order.Remove(oldest).(*entry[V])
		delete(c.lookup, evicted.key)
		c.weight -= evicted.weight

		c.log.WithFields(logrus.Fields{
			"key":          evicted.key,
			"weight":       evicted.weight,
			"spare_weight": c.budget - c.weight,
		}).Trace("evicted cache entry")
	}

	return nil
}

// Retrieve returns the entry for key, marking it as the most recently used
func (c *cache[V]) Retrieve(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, found := c.lookup[key]
	if !found {
		var zero V
		return zero, false
	}

	c.order.MoveToFront(element)
	return element.Value.(*entry[V]).value, true
}

// Clear removes all entries
func (c *cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.lookup = make(map[string]*list.Element)
	c.weight = 0
}
