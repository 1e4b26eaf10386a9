package randutil

import rand "math/rand/v2"

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Both PCG words are derived from the seed so that every call site that shares
// a seed replays the same card stream.
func New(seed int64) *rand.Rand {
	return rand.New(NewPCG(seed))
}

// NewPCG returns the source behind New. Keeping a handle on it lets callers
// snapshot and restore the stream position with MarshalBinary/UnmarshalBinary.
func NewPCG(seed int64) *rand.PCG {
	u := uint64(seed)
	return rand.NewPCG(mix(u), mix(u+goldenRatio64))
}

// Derive returns a generator for an independent stream (for example one
// training partition) of the given root seed. Stream 0 is identical to New(seed).
func Derive(seed int64, stream int) *rand.Rand {
	return rand.New(DerivePCG(seed, stream))
}

// DerivePCG is the source behind Derive.
func DerivePCG(seed int64, stream int) *rand.PCG {
	if stream == 0 {
		return NewPCG(seed)
	}
	return NewPCG(int64(mix(uint64(seed) ^ mix(uint64(stream)*goldenRatio64))))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
