package lru

import (
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a typed, fixed-size LRU cache.
type Cache[K comparable, V any] struct {
	inner *lru.Cache[K, V]
}

func New[K comparable, V any](size int) (*Cache[K, V], error) {
	inner, err := lru.New[K, V](size)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Cache[K, V]{inner: inner}, nil
}

func (c *Cache[K, V]) Add(key K, value V) {
	c.inner.Add(key, value)
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.inner.Get(key)
}

// MGet returns values for all keys in order. Missing keys yield the zero value.
func (c *Cache[K, V]) MGet(keys []K) []V {
	values := make([]V, len(keys))
	for i, key := range keys {
		values[i], _ = c.inner.Get(key)
	}
	return values
}
