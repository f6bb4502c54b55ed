package utils

import (
	"math/rand"
	"sync"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator hands out unique human readable names.
// Names are released back with Release when their owner goes away.
type RandomNameGenerator struct {
	mu    sync.Mutex
	inUse map[string]struct{}
}

func (rng *RandomNameGenerator) RandomName() string {
	rng.mu.Lock()
	defer rng.mu.Unlock()

	if rng.inUse == nil {
		rng.inUse = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(0)))
	}
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := rng.inUse[name]; !exists {
			rng.inUse[name] = struct{}{}
			return name
		}
	}
}

func (rng *RandomNameGenerator) Release(name string) {
	rng.mu.Lock()
	defer rng.mu.Unlock()
	delete(rng.inUse, name)
}
