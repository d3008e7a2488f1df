package sliceutil

import "slices"

func Map[From any, To any](v []From, f func(From) To) []To {
	out := make([]To, len(v))
	for idx := 0; idx < len(v); idx++ {
		out[idx] = f(v[idx])
	}
	return out
}

// ContainsAll reports whether every element of sub is in super.
// An empty sub is contained in anything.
func ContainsAll[T comparable](super, sub []T) bool {
	for _, v := range sub {
		if !slices.Contains(super, v) {
			return false
		}
	}
	return true
}
