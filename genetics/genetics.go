// Package genetics implements the bounded gene set creatures inherit.
package genetics

import "math/rand"

// Trait indexes a gene in the canonical chromosome order. Mutation and
// crossover walk genes in this order, so it is part of the contract.
type Trait int

const (
	Size Trait = iota
	Speed
	VisionRange
	Metabolism
	EnergyEfficiency
	FoodPreference
	PlantPreference
	SunlightEfficiency
	ReproductionThreshold
	OffspringEnergy
	ColorR
	ColorG
	ColorB

	NumTraits // sentinel, keep last
)

// String returns the gene name used in logs and snapshots.
func (t Trait) String() string {
	if t < 0 || t >= NumTraits {
		return "unknown"
	}
	return specs[t].name
}

// geneSpec defines the initialization range and hard bounds for one gene.
type geneSpec struct {
	name             string
	initMin, initMax float64
	min, max         float64
	integer          bool // Rolled as whole numbers (color channels)
}

var specs = [NumTraits]geneSpec{
	Size:                  {name: "size", initMin: 1, initMax: 3, min: 1, max: 5},
	Speed:                 {name: "speed", initMin: 0.5, initMax: 2, min: 0.1, max: 3},
	VisionRange:           {name: "vision_range", initMin: 3, initMax: 7, min: 2, max: 10},
	Metabolism:            {name: "metabolism", initMin: 0.3, initMax: 0.7, min: 0.1, max: 1.0},
	EnergyEfficiency:      {name: "energy_efficiency", initMin: 0.5, initMax: 0.9, min: 0.3, max: 1.0},
	FoodPreference:        {name: "food_preference", initMin: 0, initMax: 1, min: 0, max: 1},
	PlantPreference:       {name: "plant_preference", initMin: 0, initMax: 1, min: 0, max: 1},
	SunlightEfficiency:    {name: "sunlight_efficiency", initMin: 0, initMax: 1, min: 0, max: 1},
	ReproductionThreshold: {name: "reproduction_threshold", initMin: 60, initMax: 90, min: 50, max: 100},
	OffspringEnergy:       {name: "offspring_energy", initMin: 30, initMax: 50, min: 20, max: 60},
	ColorR:                {name: "color_r", initMin: 50, initMax: 255, min: 50, max: 255, integer: true},
	ColorG:                {name: "color_g", initMin: 50, initMax: 255, min: 50, max: 255, integer: true},
	ColorB:                {name: "color_b", initMin: 50, initMax: 255, min: 50, max: 255, integer: true},
}

// TraitByName maps a gene name back to its trait index.
func TraitByName(name string) (Trait, bool) {
	for t := Trait(0); t < NumTraits; t++ {
		if specs[t].name == name {
			return t, true
		}
	}
	return 0, false
}

// Gene is a single bounded trait value.
type Gene struct {
	Name  string
	Value float64
	Min   float64
	Max   float64
}

// Mutate perturbs the gene with probability rate, adding Gaussian noise
// with sigma at 10% of the gene's range, then clamps to [Min, Max].
// Reports whether a mutation occurred.
func (g *Gene) Mutate(rng *rand.Rand, rate float64) bool {
	if rng.Float64() >= rate {
		return false
	}
	sigma := 0.1 * (g.Max - g.Min)
	g.Value = clamp(g.Value+rng.NormFloat64()*sigma, g.Min, g.Max)
	return true
}

// Chromosome is the fixed set of genes every creature carries.
type Chromosome struct {
	Genes [NumTraits]Gene
}

// NewChromosome rolls every gene uniformly within its initialization range.
func NewChromosome(rng *rand.Rand) *Chromosome {
	c := &Chromosome{}
	for t := Trait(0); t < NumTraits; t++ {
		spec := specs[t]
		var v float64
		if spec.integer {
			lo, hi := int(spec.initMin), int(spec.initMax)
			v = float64(lo + rng.Intn(hi-lo+1))
		} else {
			v = spec.initMin + rng.Float64()*(spec.initMax-spec.initMin)
		}
		c.Genes[t] = Gene{Name: spec.name, Value: v, Min: spec.min, Max: spec.max}
	}
	return c
}

// RestoreChromosome rebuilds a chromosome from saved gene values keyed by
// name. Values are clamped to the gene bounds; unknown names are ignored.
func RestoreChromosome(values map[string]float64) *Chromosome {
	c := &Chromosome{}
	for t := Trait(0); t < NumTraits; t++ {
		spec := specs[t]
		v, ok := values[spec.name]
		if !ok {
			v = spec.min
		}
		c.Genes[t] = Gene{Name: spec.name, Value: clamp(v, spec.min, spec.max), Min: spec.min, Max: spec.max}
	}
	return c
}

// Value returns the current value of the given trait.
func (c *Chromosome) Value(t Trait) float64 {
	return c.Genes[t].Value
}

// Mutate applies per-gene mutation in canonical order and returns the
// number of genes changed.
func (c *Chromosome) Mutate(rng *rand.Rand, rate float64) int {
	mutated := 0
	for i := range c.Genes {
		if c.Genes[i].Mutate(rng, rate) {
			mutated++
		}
	}
	return mutated
}

// Crossover builds a child taking each gene from either parent with equal
// probability, in canonical order.
func (c *Chromosome) Crossover(rng *rand.Rand, other *Chromosome) *Chromosome {
	child := c.Copy()
	for i := range child.Genes {
		if rng.Float64() >= 0.5 {
			child.Genes[i].Value = other.Genes[i].Value
		}
	}
	return child
}

// Copy returns an independent copy of the chromosome.
func (c *Chromosome) Copy() *Chromosome {
	copied := *c
	return &copied
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
