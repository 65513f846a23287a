// Package main provides CMA-ES tuning for terrarium simulation parameters.
package main

import (
	"github.com/pthm-cable/terrarium/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Creature energy economics (movement_cost locked at 0.1)
			{Name: "energy_decay", Path: "creature.energy_decay", Min: 0.1, Max: 1.5, Default: 0.5},
			{Name: "reproduction_cost", Path: "creature.reproduction_cost", Min: 10.0, Max: 60.0, Default: 30.0},
			{Name: "mutation_rate", Path: "creature.mutation_rate", Min: 0.01, Max: 0.5, Default: 0.1},
			// Resource dynamics
			{Name: "food_respawn_rate", Path: "world.food_respawn_rate", Min: 0.05, Max: 0.9, Default: 0.2},
			{Name: "plant_growth_rate", Path: "world.plant_growth_rate", Min: 0.05, Max: 0.9, Default: 0.15},
			{Name: "sunlight_intensity", Path: "world.sunlight_intensity", Min: 2.0, Max: 20.0, Default: 10.0},
			// Learning
			// discount_factor locked at 0.9
			{Name: "learning_rate", Path: "brain.learning_rate", Min: 0.01, Max: 0.5, Default: 0.1},
			{Name: "exploration_rate", Path: "brain.exploration_rate", Min: 0.05, Max: 0.8, Default: 0.3},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	// Clamp values to ensure they're within bounds
	clamped := pv.Clamp(values)

	// Apply each parameter to the config
	// Order must match Specs order
	i := 0

	// Creature energy economics (movement_cost locked)
	cfg.Creature.MovementCost = 0.1
	cfg.Creature.EnergyDecay = clamped[i]
	i++
	cfg.Creature.ReproductionCost = clamped[i]
	i++
	cfg.Creature.MutationRate = clamped[i]
	i++

	// Resource dynamics
	cfg.World.FoodRespawnRate = clamped[i]
	i++
	cfg.World.PlantGrowthRate = clamped[i]
	i++
	cfg.World.SunlightIntensity = clamped[i]
	i++

	// Learning (discount_factor locked)
	cfg.Brain.DiscountFactor = 0.9
	cfg.Brain.LearningRate = clamped[i]
	i++
	cfg.Brain.ExplorationRate = clamped[i]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		// Creature energy economics (movement_cost locked)
		cfg.Creature.EnergyDecay,
		cfg.Creature.ReproductionCost,
		cfg.Creature.MutationRate,
		// Resource dynamics
		cfg.World.FoodRespawnRate,
		cfg.World.PlantGrowthRate,
		cfg.World.SunlightIntensity,
		// Learning (discount_factor locked)
		cfg.Brain.LearningRate,
		cfg.Brain.ExplorationRate,
	}
}
