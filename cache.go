package chat

import (
	"sync"
	"time"
)

type expiring[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache is a concurrent map whose entries expire.
// An entry is never returned once its expiry has been reached.
// The zero value is ready to use.
type ttlCache[K comparable, V any] struct {
	m sync.Map
}

func (c *ttlCache[K, V]) get(key K, now time.Time) (V, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}

	e := v.(*expiring[V])
	if !now.Before(e.expiresAt) {
		c.m.CompareAndDelete(key, e)

		var zero V
		return zero, false
	}

	return e.value, true
}

func (c *ttlCache[K, V]) put(key K, value V, expiresAt time.Time) {
	c.m.Store(key, &expiring[V]{value: value, expiresAt: expiresAt})
}

func (c *ttlCache[K, V]) delete(key K) {
	c.m.Delete(key)
}

// deleteFunc removes every entry whose key satisfies del.
func (c *ttlCache[K, V]) deleteFunc(del func(K) bool) {
	c.m.Range(func(k, _ any) bool {
		if del(k.(K)) {
			c.m.Delete(k)
		}

		return true
	})
}

// sweep removes expired entries and returns how many were removed.
func (c *ttlCache[K, V]) sweep(now time.Time) int {
	var n int
	c.m.Range(func(k, v any) bool {
		if !now.Before(v.(*expiring[V]).expiresAt) && c.m.CompareAndDelete(k, v) {
			n++
		}

		return true
	})

	return n
}

func (c *ttlCache[K, V]) clear() {
	c.m.Clear()
}

func (c *ttlCache[K, V]) len() int {
	var n int
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}
