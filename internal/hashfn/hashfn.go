// Package hashfn supplies the Murmur-family hash function the builder's
// bucket/radix math is defined in terms of: a pure function from key bytes
// to a 64-bit hash code, plus a 128-bit variant for callers that want a
// wider digest.
package hashfn

import "github.com/spaolacci/murmur3"

// Hash64 returns the 64-bit Murmur3 hash of key. This is the `hash(bytes)
// -> u64` function the builder's bucket/radix math is defined in terms of.
func Hash64(key []byte) uint64 {
	return murmur3.Sum64(key)
}

// Hash128 returns the 128-bit Murmur3 hash of key as two uint64 halves.
// The builder itself only consumes the hi half (Hash64 returns it); Hash128
// backs the manifest's location-independent content key, which needs more
// bits than a single bucket lookup does to stay collision-safe across many
// builds.
func Hash128(key []byte) (hi, lo uint64) {
	return murmur3.Sum128(key)
}
