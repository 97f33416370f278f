package creature

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
	"time"
)

// Picker draws spawn species from the registry, weighted by each
// species' spawn weight. Safe for concurrent use.
type Picker struct {
	reg         *Registry
	cumulative  []int
	totalWeight int
	meanWeight  float64

	mu  sync.Mutex
	rng *mrand.Rand
}

func NewPicker(reg *Registry, rng *mrand.Rand) *Picker {
	if rng == nil {
		rng = mrand.New(mrand.NewSource(SeedFromEntropy()))
	}

	p := &Picker{
		reg: reg,
		rng: rng,
	}

	all := reg.All()

	p.cumulative = make([]int, len(all))
	totalWeight := 0
	for i, sp := range all {
		if sp.Weight < 1 {
			sp.Weight = 1
		}
		totalWeight += sp.Weight
		p.cumulative[i] = totalWeight
	}
	p.totalWeight = totalWeight
	p.meanWeight = float64(totalWeight) / float64(len(all))
	return p
}

// SeedFromEntropy returns an rng seed from the OS entropy pool, falling
// back to the wall clock if the read fails.
func SeedFromEntropy() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

func (p *Picker) PickId() SpeciesId {
	p.mu.Lock()
	roll := p.rng.Intn(p.totalWeight) // random int from [0,totalWeight)
	p.mu.Unlock()

	// binary search for the species using p.cumulative
	lo, hi := 0, len(p.cumulative)-1
	for lo < hi {
		mid := (lo + hi) >> 1
		if roll < p.cumulative[mid] {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return SpeciesId(lo)
}

// RandomSpeciesId is the catalog-facing alias for PickId.
func (p *Picker) RandomSpeciesId() SpeciesId { return p.PickId() }

func (p *Picker) LookupSpecies(id SpeciesId) (Species, bool) {
	return p.reg.GetById(id)
}

func (p *Picker) FallbackIds() []SpeciesId {
	return p.reg.FallbackIds()
}
