package buffer

import (
	"math/rand/v2"
	"time"
)

// seedStaging holds the host slices seed values are generated into before
// they are copied into a buffer's memory space.
var seedStaging = NewStagingPool[uint32]()

// SeedBuffer2D is a buffer of per-element random seeds. Every Resize fills it
// with freshly generated values, even when the resolution is unchanged.
type SeedBuffer2D struct {
	*Buffer2D[uint32]
	rng *rand.Rand
}

// NewSeedBuffer2D returns an empty seed buffer in space. Values are drawn from
// src; a nil src gives the buffer its own generator seeded from the clock.
func NewSeedBuffer2D(space Space, name string, src rand.Source) *SeedBuffer2D {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>32|now<<32)
	}
	return &SeedBuffer2D{
		Buffer2D: New[uint32](space, name),
		rng:      rand.New(src),
	}
}

// NewSeedSource returns a deterministic source for seed.
func NewSeedSource(seed int64) rand.Source {
	return rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15)
}

// Resize sets the resolution and regenerates every seed. Storage is only
// reallocated when the resolution changes.
func (s *SeedBuffer2D) Resize(res Resolution) error {
	if err := res.validate(elemSize[uint32]()); err != nil {
		return err
	}

	n := res.Elements()
	seeds := seedStaging.Get(n)
	defer seedStaging.Put(seeds)

	for i := range seeds {
		seeds[i] = s.rng.Uint32()
	}
	return s.SetSlice(res, seeds)
}
