// Package entropy provides the random streams a run draws from. A run is
// reproducible from its seed: every draw comes from one stream, or from a
// sub-stream derived from the seed and a key.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
)

// NewSeed draws a fresh seed from crypto/rand.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		slog.Warn("crypto seed unavailable, using fixed seed", "error", err)
		return 1
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}

// Resolve returns seed unchanged, or a fresh seed when seed is 0.
func Resolve(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return NewSeed()
}

// NewStream returns the run's main stream.
func NewStream(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}

// SubStream derives an independent stream keyed by an entity and a tick.
// Draws from it leave the main stream untouched, so an entity's draws do
// not depend on how many other entities drew before it.
func SubStream(seed int64, entity, tick uint64) *mrand.Rand {
	h := mix(uint64(seed) ^ mix(entity+0x9e3779b97f4a7c15) ^ mix(tick+0xbf58476d1ce4e5b9))
	return mrand.New(mrand.NewSource(int64(h >> 1)))
}

// mix is the splitmix64 finalizer.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
