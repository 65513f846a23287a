package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/terrarium/config"
	"github.com/pthm-cable/terrarium/sim"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params   *ParamVector
	maxTicks int
	seeds    []int64
	window   int // ticks per stats window

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, window int) *FitnessEvaluator {
	if window <= 0 {
		window = 100
	}
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		window:      window,
		bestFitness: math.Inf(1),
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// windowStats is one telemetry window sampled during a tuning run.
type windowStats struct {
	population int
	avgEnergy  float64
	births     int
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int // ticks before extinction (or maxTicks if survived)
	windows       []windowStats
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	quality float64
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Parameters are written into the shared config before the seed runs
// launch, so evaluations must not overlap. All seeds share the same
// parameters; the runs themselves execute in parallel.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	fe.params.ApplyToConfig(config.Cfg(), x)

	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			run := fe.runSimulation(s)
			results[idx] = seedResult{
				fitness: fe.computeFitness(run),
				quality: fe.computeQuality(run.windows),
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless simulation run.
// Runs until extinction or maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(seed int64) *runResult {
	s := sim.NewSimulation(seed)
	result := &runResult{}

	lastBirths := 0
	for !s.Extinct() && s.Tick() < fe.maxTicks {
		s.Update()

		if s.Tick()%fe.window == 0 {
			st := s.Stats()
			result.windows = append(result.windows, windowStats{
				population: st.Population,
				avgEnergy:  st.AvgEnergy,
				births:     st.TotalBirths - lastBirths,
			})
			lastBirths = st.TotalBirths
		}
	}

	result.survivalTicks = s.Tick()
	return result
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
// Survival dominates; quality adds up to 20% bonus to differentiate
// configs with similar survival.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalTicks)
	quality := fe.computeQuality(r.windows)
	return -(survival * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightFullness  = 0.30
	qualityWeightStability = 0.25
	qualityWeightEnergy    = 0.25
	qualityWeightTurnover  = 0.20

	qualityWarmupWindows = 3 // skip first N windows (warmup)
	qualityMinPop        = 3 // exclude windows with population below this
)

// computeQuality computes population quality ∈ [0, 1] from window stats.
func (fe *FitnessEvaluator) computeQuality(windows []windowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	// Collect valid windows (past warmup, population established)
	valid := windows[qualityWarmupWindows:]

	limit := float64(config.Cfg().Population.Max)
	maxEnergy := config.Cfg().Creature.MaxEnergy

	// --- Per-window accumulators ---
	var fullnessSum, energySum, turnoverSum float64
	var count int

	// --- Full time series for stability ---
	pops := make([]float64, 0, len(valid))

	for _, w := range valid {
		if w.population < qualityMinPop {
			continue
		}

		pops = append(pops, float64(w.population))

		// 1. Fullness score: how close the population sits to the cap
		fullnessSum += float64(w.population) / limit

		// 3. Energy health score: mean energy near half charge means
		// creatures are neither starving nor saturated
		h := (w.avgEnergy/maxEnergy - 0.5) / 0.25
		energySum += math.Exp(-h * h)

		// 4. Turnover score: births per window, saturating
		turnoverSum += 1.0 - math.Exp(-float64(w.births)/5.0)
		count++
	}

	// No valid windows → zero quality
	if count == 0 {
		return 0
	}

	// 1. Fullness (averaged per valid window)
	fullnessScore := fullnessSum / float64(count)

	// 2. Population stability (CV across all valid windows)
	stabilityScore := 0.0
	if len(pops) >= 2 {
		c := cv(pops)
		stabilityScore = math.Exp(-(c * c))
	}

	// 3. Energy health (averaged per valid window)
	energyScore := energySum / float64(count)

	// 4. Turnover (averaged per valid window)
	turnoverScore := turnoverSum / float64(count)

	quality := qualityWeightFullness*fullnessScore +
		qualityWeightStability*stabilityScore +
		qualityWeightEnergy*energyScore +
		qualityWeightTurnover*turnoverScore

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
