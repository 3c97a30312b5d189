// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

// LRU is a typed LRU cache counting its hits and misses.
type LRU[K comparable, V any] struct {
	cache     *lru.Cache
	hit, miss atomic.Int64
}

// NewLRU creates a cache holding at most maxSize values.
// maxSize should be > 0, or an error returned.
func NewLRU[K comparable, V any](maxSize int) (*LRU[K, V], error) {
	c, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{cache: c}, nil
}

func (l *LRU[K, V]) Get(key K) (v V, ok bool) {
	if cached, found := l.cache.Get(key); found {
		l.hit.Add(1)
		return cached.(V), true
	}
	l.miss.Add(1)
	return v, false
}

func (l *LRU[K, V]) Add(key K, v V) {
	l.cache.Add(key, v)
}

func (l *LRU[K, V]) Len() int {
	return l.cache.Len()
}

// GetOrLoad first tries the cache and loads on a miss. Loaded values are
// only kept when keep reports true for them.
func (l *LRU[K, V]) GetOrLoad(key K, load func(K) (V, error), keep func(V) bool) (V, error) {
	if v, ok := l.Get(key); ok {
		return v, nil
	}
	v, err := load(key)
	if err != nil {
		return v, err
	}
	if keep == nil || keep(v) {
		l.Add(key, v)
	}
	return v, nil
}

// Stats returns the number of hits and misses so far.
func (l *LRU[K, V]) Stats() (hit, miss int64) {
	return l.hit.Load(), l.miss.Load()
}
