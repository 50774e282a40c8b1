// Package rng derives independent, reproducible random streams from a
// single configured seed.
//
// Every random draw in blendgen goes through a *rand.Rand built here from
// the run seed plus a stream label and position (batch index, blend index,
// band index). Two runs with the same seed therefore produce the same
// output regardless of how blends are scheduled across workers.
package rng

import "math/rand/v2"

// Stream labels keep draws for different purposes decorrelated.
const (
	StreamBlends     uint64 = 1
	StreamNoise      uint64 = 2
	StreamConditions uint64 = 3
)

// splitmix64 is the SplitMix64 finalizer.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Derive mixes seed with parts into a new 64-bit seed.
func Derive(seed uint64, parts ...uint64) uint64 {
	s := splitmix64(seed)
	for _, p := range parts {
		s = splitmix64(s ^ p)
	}
	return s
}

// NewSource returns a PCG source for the derived seed.
func NewSource(seed uint64, parts ...uint64) *rand.PCG {
	s := Derive(seed, parts...)
	return rand.NewPCG(s, s^0xdeadbeef)
}

// New returns a generator for the derived seed.
func New(seed uint64, parts ...uint64) *rand.Rand {
	return rand.New(NewSource(seed, parts...))
}
