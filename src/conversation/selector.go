package conversation

import "math/rand/v2"

// FillerSelector picks filler phrases. Tests stub it for determinism.
type FillerSelector interface {
	// Pick returns one phrase of pool, "" for an empty pool
	Pick(pool []string) string
	// Chance reports true with probability p
	Chance(p float64) bool
}

type randomSelector struct{}

// NewRandomSelector picks uniformly at random
func NewRandomSelector() FillerSelector {
	return randomSelector{}
}

func (randomSelector) Pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rand.IntN(len(pool))]
}

func (randomSelector) Chance(p float64) bool {
	return rand.Float64() < p
}
