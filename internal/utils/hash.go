package utils

import "hash/fnv"

// StableHash returns an FNV-1a hash over parts, separated by a zero byte so
// that ("ab","c") and ("a","bc") differ.
func StableHash(parts ...string) uint64 {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte(p))
	}
	return h.Sum64()
}
