// Package randutil centralises how deck shuffles are seeded. rand/v2
// wants two 64-bit seeds for its PCG source; deriving both from one
// int64 here keeps every call site reproducible from a single number.
package randutil

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed. Equal
// seeds yield equal shuffle sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// mix is splitmix64, used to spread a weak seed over 64 bits
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
