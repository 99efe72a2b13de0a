// Package kv holds the concurrent in-memory stores used while reading OSM data.
package kv

type KVS[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Range(func(key K, value V) bool)
	Len() int
}
