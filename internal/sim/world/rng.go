package world

import "sort"

// Deterministic hashing in place of math/rand. The same seed and inputs give
// the same draw on every platform and every replay.

func mix64(v uint64) uint64 {
	v ^= v >> 33
	v *= 0xff51afd7ed558ccd
	v ^= v >> 33
	v *= 0xc4ceb9fe1a85ec53
	v ^= v >> 33
	return v
}

func hash2(seed int64, a, b uint64) uint64 {
	h := mix64(uint64(seed) ^ 0x9e3779b97f4a7c15)
	h = mix64(h ^ a)
	h = mix64(h ^ b)
	return h
}

// weightedPick draws one key from a weight table, iterating keys in sorted
// order so the draw does not depend on map iteration.
func weightedPick(weights map[string]int, h uint64) string {
	keys := make([]string, 0, len(weights))
	total := 0
	for k, v := range weights {
		if v > 0 {
			keys = append(keys, k)
			total += v
		}
	}
	if total == 0 {
		return ""
	}
	sort.Strings(keys)
	n := int(h % uint64(total))
	for _, k := range keys {
		n -= weights[k]
		if n < 0 {
			return k
		}
	}
	return keys[len(keys)-1]
}
