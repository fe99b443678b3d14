package engine

import "testing"

func TestSeededCoinIsDeterministic(t *testing.T) {
	a, b := NewSeededCoin(42), NewSeededCoin(42)
	for i := 0; i < 64; i++ {
		if a.Flip() != b.Flip() {
			t.Fatalf("Seeded coins diverged at flip %d", i)
		}
	}
}

func TestCoinsProduceBothSides(t *testing.T) {
	coins := map[string]Coin{
		"crypto": CryptoCoin{},
		"seeded": NewSeededCoin(7),
	}
	for name, coin := range coins {
		t.Run(name, func(t *testing.T) {
			heads := 0
			const flips = 1000
			for i := 0; i < flips; i++ {
				if coin.Flip() {
					heads++
				}
			}
			if heads == 0 || heads == flips {
				t.Errorf("Expected both outcomes in %d flips, got %d heads", flips, heads)
			}
		})
	}
}
