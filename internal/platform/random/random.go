// Package random provides seeded sources for variant draws.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// NewUnitInterval returns a goroutine-safe source of numbers in (0,1],
// seeded from crypto/rand.
func NewUnitInterval() (func() float64, error) {
	hi, err := NewSeed()
	if err != nil {
		return nil, err
	}
	lo, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return UnitIntervalFromSeed(hi, lo), nil
}

// UnitIntervalFromSeed returns a deterministic source of numbers in (0,1].
func UnitIntervalFromSeed(hi, lo uint64) func() float64 {
	var mu sync.Mutex
	rng := rand.New(rand.NewPCG(hi, lo))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return 1 - rng.Float64()
	}
}
