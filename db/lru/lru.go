// Package lru is a bounded in-memory cache of work order results.
package lru

import (
	glru "github.com/hashicorp/golang-lru"
)

// Cache keeps the most recently used entries, up to its size. It is safe for
// concurrent use.
type Cache struct {
	lru *glru.Cache
}

// New returns a Cache of size entries. It panics if size is not positive.
func New(size int) *Cache {
	lru, err := glru.New(size)
	if err != nil {
		// only on a non-positive size
		panic(err)
	}
	return &Cache{lru: lru}
}

// Add inserts a new element to the cache, evicting the least recently used
// one if the cache is full. It reports whether an eviction happened.
func (l *Cache) Add(key, value any) bool {
	return l.lru.Add(key, value)
}

// Get returns the value of key, or nil, and marks it as recently used.
func (l *Cache) Get(key any) any {
	value, ok := l.lru.Get(key)
	if !ok {
		return nil
	}
	return value
}

// Len returns the number of elements in the cache.
func (l *Cache) Len() int {
	return l.lru.Len()
}
