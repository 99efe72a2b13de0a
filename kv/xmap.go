package kv

import (
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/exp/constraints"
)

// XMap is a lock-free map for stores with heavy concurrent writes, like node coordinates.
type XMap[K comparable, V any] struct {
	m *xsync.MapOf[K, V]
}

func NewIntXMap[K constraints.Integer, V any]() *XMap[K, V] {
	return &XMap[K, V]{m: xsync.NewMapOf[K, V]()}
}

var _ KVS[int64, any] = (*XMap[int64, any])(nil)

// Get implements KVS
func (m *XMap[K, V]) Get(key K) (V, bool) {
	return m.m.Load(key)
}

// Set implements KVS
func (m *XMap[K, V]) Set(key K, value V) {
	m.m.Store(key, value)
}

func (m *XMap[K, V]) Range(f func(key K, value V) bool) {
	m.m.Range(f)
}

func (m *XMap[K, V]) Len() int {
	return m.m.Size()
}
