package util

import (
	"math/rand"
	"sync"
	"time"
)

const refCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// refCodeTimeLayout renders month, day, hour, minute and second as a fixed
// ten-character prefix so codes sort roughly chronologically.
const refCodeTimeLayout = "0102150405"

// ReferenceCodeGenerator produces ticket reference codes: a timestamp prefix
// padded to the requested total length with random uppercase letters. No
// uniqueness check is performed; the timestamp granularity plus suffix
// entropy makes collisions negligible at this scale.
type ReferenceCodeGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewReferenceCodeGenerator builds a generator from an explicit seed so code
// generation is deterministic under test.
func NewReferenceCodeGenerator(seed int64) *ReferenceCodeGenerator {
	return &ReferenceCodeGenerator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (g *ReferenceCodeGenerator) WithClock(now func() time.Time) *ReferenceCodeGenerator {
	g.now = now
	return g
}

// Generate returns a reference code of exactly length characters.
func (g *ReferenceCodeGenerator) Generate(length int) string {
	prefix := g.now().Format(refCodeTimeLayout)
	if length <= len(prefix) {
		return prefix[:length]
	}
	return prefix + g.randomLetters(length-len(prefix))
}

func (g *ReferenceCodeGenerator) randomLetters(n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = refCodeAlphabet[g.rng.Intn(len(refCodeAlphabet))]
	}
	return string(out)
}
