// Package telemetry tracks population statistics for a running
// simulation and writes periodic CSV summaries alongside the run.
package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/stat"
)

// CreatureSample is a flat per-creature observation. The scheduler
// builds one per living creature each tick so this package never has
// to reach into world state.
type CreatureSample struct {
	Energy          float64
	Age             int
	Generation      int
	Size            float64
	Speed           float64
	VisionRange     float64
	Metabolism      float64
	FoodPreference  float64
	PlantPreference float64
}

// Statistics accumulates totals across the life of a simulation and
// recomputes population aggregates every tick. Exported fields are
// persisted in snapshots; wall-clock tracking is rebuilt on load.
type Statistics struct {
	Ticks          int `json:"ticks"`
	TotalBirths    int `json:"total_births"`
	TotalDeaths    int `json:"total_deaths"`
	PeakPopulation int `json:"peak_population"`

	Population    int         `json:"population"`
	AvgEnergy     float64     `json:"avg_energy"`
	AvgAge        float64     `json:"avg_age"`
	AvgSize       float64     `json:"avg_size"`
	AvgSpeed      float64     `json:"avg_speed"`
	AvgVision     float64     `json:"avg_vision"`
	AvgMetabolism float64     `json:"avg_metabolism"`
	AvgFoodPref   float64     `json:"avg_food_pref"`
	AvgPlantPref  float64     `json:"avg_plant_pref"`
	AvgGeneration float64     `json:"avg_generation"`
	MaxGeneration int         `json:"max_generation"`
	Generations   map[int]int `json:"generations"`

	TicksPerSecond float64 `json:"-"`

	start        time.Time
	lastRateTime time.Time
	lastRateTick int
}

// NewStatistics returns zeroed statistics anchored to the current
// wall clock.
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		Generations:  map[int]int{},
		start:        now,
		lastRateTime: now,
	}
}

// RestoreStatistics rebuilds runtime state around counters loaded
// from a snapshot.
func RestoreStatistics(saved Statistics) *Statistics {
	s := saved
	if s.Generations == nil {
		s.Generations = map[int]int{}
	}
	now := time.Now()
	s.start = now
	s.lastRateTime = now
	s.lastRateTick = s.Ticks
	return &s
}

// RecordBirths adds n to the cumulative birth count.
func (s *Statistics) RecordBirths(n int) { s.TotalBirths += n }

// RecordDeaths adds n to the cumulative death count.
func (s *Statistics) RecordDeaths(n int) { s.TotalDeaths += n }

// Observe recomputes the population aggregates for the current tick.
func (s *Statistics) Observe(tick int, samples []CreatureSample) {
	s.Ticks = tick
	s.Population = len(samples)
	if s.Population > s.PeakPopulation {
		s.PeakPopulation = s.Population
	}
	s.updateRate(tick)

	s.Generations = map[int]int{}
	s.MaxGeneration = 0
	if len(samples) == 0 {
		s.AvgEnergy = 0
		s.AvgAge = 0
		s.AvgSize = 0
		s.AvgSpeed = 0
		s.AvgVision = 0
		s.AvgMetabolism = 0
		s.AvgFoodPref = 0
		s.AvgPlantPref = 0
		s.AvgGeneration = 0
		return
	}

	energy := make([]float64, len(samples))
	age := make([]float64, len(samples))
	size := make([]float64, len(samples))
	speed := make([]float64, len(samples))
	vision := make([]float64, len(samples))
	metabolism := make([]float64, len(samples))
	foodPref := make([]float64, len(samples))
	plantPref := make([]float64, len(samples))
	generation := make([]float64, len(samples))
	for i, c := range samples {
		energy[i] = c.Energy
		age[i] = float64(c.Age)
		size[i] = c.Size
		speed[i] = c.Speed
		vision[i] = c.VisionRange
		metabolism[i] = c.Metabolism
		foodPref[i] = c.FoodPreference
		plantPref[i] = c.PlantPreference
		generation[i] = float64(c.Generation)
		s.Generations[c.Generation]++
		if c.Generation > s.MaxGeneration {
			s.MaxGeneration = c.Generation
		}
	}
	s.AvgEnergy = stat.Mean(energy, nil)
	s.AvgAge = stat.Mean(age, nil)
	s.AvgSize = stat.Mean(size, nil)
	s.AvgSpeed = stat.Mean(speed, nil)
	s.AvgVision = stat.Mean(vision, nil)
	s.AvgMetabolism = stat.Mean(metabolism, nil)
	s.AvgFoodPref = stat.Mean(foodPref, nil)
	s.AvgPlantPref = stat.Mean(plantPref, nil)
	s.AvgGeneration = stat.Mean(generation, nil)
}

// updateRate refreshes the ticks-per-second estimate about once per
// wall second so the figure stays readable in logs.
func (s *Statistics) updateRate(tick int) {
	now := time.Now()
	elapsed := now.Sub(s.lastRateTime)
	if elapsed < time.Second {
		return
	}
	s.TicksPerSecond = float64(tick-s.lastRateTick) / elapsed.Seconds()
	s.lastRateTick = tick
	s.lastRateTime = now
}

// Elapsed reports wall time since the statistics were created or
// restored.
func (s *Statistics) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Summary renders a human readable block for shutdown logs and
// snapshot sidecars.
func (s *Statistics) Summary() string {
	return fmt.Sprintf(
		"ticks: %d\npopulation: %d (peak %d)\nbirths: %d\ndeaths: %d\ngeneration: avg %.1f, max %d\navg energy: %.1f\navg age: %.1f\nelapsed: %s\n",
		s.Ticks, s.Population, s.PeakPopulation, s.TotalBirths, s.TotalDeaths,
		s.AvgGeneration, s.MaxGeneration, s.AvgEnergy, s.AvgAge, s.Elapsed().Round(time.Second),
	)
}

// LogValue summarises the counters for structured logs.
func (s *Statistics) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tick", s.Ticks),
		slog.Int("population", s.Population),
		slog.Int("peak", s.PeakPopulation),
		slog.Int("births", s.TotalBirths),
		slog.Int("deaths", s.TotalDeaths),
		slog.Float64("avg_generation", s.AvgGeneration),
		slog.Int("max_generation", s.MaxGeneration),
		slog.Float64("avg_energy", s.AvgEnergy),
	)
}
