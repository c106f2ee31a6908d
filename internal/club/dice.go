package club

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// A Roller returns one face of a six-sided die. The executor takes it as a
// dependency so wager tests can force an outcome.
type Roller func() int

// WinningFace is the only face that pays out a wager.
const WinningFace = 6

// NewRoller returns a Roller seeded from crypto/rand and safe for
// concurrent use.
func NewRoller() (Roller, error) {
	seed, err := newSeed()
	if err != nil {
		return nil, err
	}
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(seed))
	return func() int {
		mu.Lock()
		defer mu.Unlock()
		return rng.Intn(6) + 1
	}, nil
}

func newSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
