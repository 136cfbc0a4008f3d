// Package generics implements small generic helpers missing from the stdlib.
package generics

import (
	"cmp"
	"slices"
)

// SliceMap executes fn sequentially for every element of in and returns the
// mapped slice.
func SliceMap[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// KeysSlice returns a slice with the keys of a map.
func KeysSlice[Map interface{ ~map[K]V }, K comparable, V any](m Map) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// SortedKeys returns the keys of the map in sorted order.
func SortedKeys[Map interface{ ~map[K]V }, K cmp.Ordered, V any](m Map) []K {
	keys := KeysSlice(m)
	slices.Sort(keys)
	return keys
}
