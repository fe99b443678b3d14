package engine

import (
	"crypto/rand"
	mrand "math/rand/v2"
	"sync"
)

// Coin supplies the uniform random bit used to pick who moves first
type Coin interface {
	// Flip returns true when player1 should open the game
	Flip() bool
}

// CoinFunc adapts a plain function to the Coin interface
type CoinFunc func() bool

// Flip calls f
func (f CoinFunc) Flip() bool { return f() }

// CryptoCoin draws its bit from the operating system CSPRNG
type CryptoCoin struct{}

// Flip returns a uniformly distributed bit
func (CryptoCoin) Flip() bool {
	var b [1]byte
	rand.Read(b[:])
	return b[0]&1 == 1
}

// SeededCoin is a deterministic coin for tests and reproducible runs
type SeededCoin struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededCoin creates a coin whose sequence is fully determined by seed
func NewSeededCoin(seed uint64) *SeededCoin {
	return &SeededCoin{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Flip returns the next bit of the seeded sequence
func (c *SeededCoin) Flip() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(2) == 1
}
