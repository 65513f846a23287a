package sim

import (
	"log/slog"
	"math/rand"
	"sort"

	"github.com/pthm-cable/terrarium/brain"
	"github.com/pthm-cable/terrarium/config"
	"github.com/pthm-cable/terrarium/telemetry"
)

// Simulation drives the world one tick at a time and feeds the
// telemetry pipeline. It owns the tick counter and the run's RNG, so
// two simulations built from the same seed and config replay the same
// history.
type Simulation struct {
	world *World
	rng   *rand.Rand
	seed  int64

	tick    int
	running bool

	stats     *telemetry.Statistics
	collector *telemetry.Collector
	output    *telemetry.OutputManager
	logStats  bool
}

// NewSimulation generates a fresh world from seed and spawns the
// initial population.
func NewSimulation(seed int64) *Simulation {
	cfg := config.Cfg()
	rng := rand.New(rand.NewSource(seed))
	s := &Simulation{
		world:     NewWorld(rng),
		rng:       rng,
		seed:      seed,
		running:   true,
		stats:     telemetry.NewStatistics(),
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow),
	}
	s.spawnInitialCreatures()
	slog.Info("simulation ready",
		"seed", seed,
		"population", len(s.world.list),
		"resources", s.world.ResourceCount(),
	)
	return s
}

// NewSimulationFrom resumes a simulation around restored state. The
// tick counter continues from the restored statistics.
func NewSimulationFrom(world *World, stats *telemetry.Statistics, rng *rand.Rand, seed int64) *Simulation {
	return &Simulation{
		world:     world,
		rng:       rng,
		seed:      seed,
		tick:      stats.Ticks,
		running:   true,
		stats:     stats,
		collector: telemetry.NewCollector(config.Cfg().Telemetry.StatsWindow),
	}
}

// spawnInitialCreatures seeds the starting population on empty
// interior cells, counting each placement as a birth. A crowded map
// may come up short once the attempt budget runs out.
func (s *Simulation) spawnInitialCreatures() {
	cfg := config.Cfg()
	w := s.world
	spawned := 0
	for i := 0; i < cfg.Population.Initial; i++ {
		for attempt := 0; attempt < 100; attempt++ {
			x := randInt(s.rng, 2, w.Width()-3)
			y := randInt(s.rng, 2, w.Height()-3)
			if !w.IsEmpty(x, y) {
				continue
			}
			if w.AddCreature(NewCreature(w.NextID(), x, y, s.rng)) {
				spawned++
				break
			}
		}
	}
	s.stats.RecordBirths(spawned)
}

// SetOutput attaches an output manager for telemetry flushes. Nil is
// fine and disables file output.
func (s *Simulation) SetOutput(o *telemetry.OutputManager) { s.output = o }

// SetLogStats enables a log line per telemetry flush.
func (s *Simulation) SetLogStats(v bool) { s.logStats = v }

// World returns the simulation's world.
func (s *Simulation) World() *World { return s.world }

// Stats returns the cumulative run statistics.
func (s *Simulation) Stats() *telemetry.Statistics { return s.stats }

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int { return s.tick }

// Seed returns the seed the run was started with.
func (s *Simulation) Seed() int64 { return s.seed }

// Running reports whether the simulation will advance on Update.
func (s *Simulation) Running() bool { return s.running }

// Stop halts the simulation. Further Updates are no-ops.
func (s *Simulation) Stop() { s.running = false }

// Extinct reports whether no creatures remain. The world keeps ticking
// either way; whether to stop is the caller's decision.
func (s *Simulation) Extinct() bool { return len(s.world.list) == 0 }

// Update advances the simulation one tick. Phase order is fixed:
// resources first, then creature turns against a snapshot of the
// population, then death and cap enforcement, statistics last.
func (s *Simulation) Update() {
	if !s.running {
		return
	}

	// 1. Resource aging and respawn.
	s.world.UpdateResources(s.rng)

	// 2. Creature turns.
	births := s.updateCreatures()

	// 3. Sweep the dead.
	starved := s.removeDead()

	// 4. Population cap.
	evicted := s.enforceCap()

	s.tick++

	// 5. Statistics and telemetry.
	s.stats.RecordBirths(births)
	s.stats.RecordDeaths(starved + evicted)
	samples := s.sampleCreatures()
	s.stats.Observe(s.tick, samples)

	s.collector.RecordBirths(births)
	s.collector.RecordStarvations(starved)
	s.collector.RecordEvictions(evicted)
	if s.collector.ShouldFlush(s.tick) {
		s.flushTelemetry(samples)
	}

	if starved+evicted > 0 && len(s.world.list) == 0 {
		slog.Warn("population extinct", "tick", s.tick)
	}
}

// updateCreatures runs one full turn for every creature alive at the
// start of the tick. Iteration is over a shuffled snapshot so turn
// order carries no positional bias, and creatures born this tick do
// not act until the next one. Returns the number of births.
func (s *Simulation) updateCreatures() int {
	w := s.world
	before := len(w.list)

	order := make([]*Creature, len(w.list))
	copy(order, w.list)
	s.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	for _, c := range order {
		if !c.Alive {
			continue
		}
		action, state := c.DecideAction(w, s.rng)
		s.collector.RecordAction(action)
		reward := c.ExecuteAction(action, w, s.rng)
		c.Update()
		next := brain.StateOf(c.Perceive(w))
		c.Brain.Learn(state, action, reward, next)
	}

	return len(w.list) - before
}

// removeDead sweeps creatures whose energy ran out. Collect first,
// then mutate, so the sweep never shrinks the list it iterates.
func (s *Simulation) removeDead() int {
	w := s.world
	var dead []*Creature
	for _, c := range w.list {
		if !c.Alive {
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		w.RemoveCreature(c)
		slog.Debug("creature died",
			"id", c.ID,
			"age", c.Age,
			"generation", c.Generation,
			"offspring", c.OffspringCount,
		)
	}
	return len(dead)
}

// enforceCap trims the population to the configured maximum, oldest
// first.
func (s *Simulation) enforceCap() int {
	w := s.world
	limit := config.Cfg().Population.Max
	if limit <= 0 || len(w.list) <= limit {
		return 0
	}

	excess := len(w.list) - limit
	byAge := make([]*Creature, len(w.list))
	copy(byAge, w.list)
	sort.SliceStable(byAge, func(i, j int) bool {
		return byAge[i].Age > byAge[j].Age
	})
	for _, c := range byAge[:excess] {
		c.Alive = false
		w.RemoveCreature(c)
	}
	slog.Debug("population cap enforced", "evicted", excess, "cap", limit)
	return excess
}

// sampleCreatures flattens the living population for telemetry.
func (s *Simulation) sampleCreatures() []telemetry.CreatureSample {
	list := s.world.list
	samples := make([]telemetry.CreatureSample, len(list))
	for i, c := range list {
		samples[i] = telemetry.CreatureSample{
			Energy:          c.Energy,
			Age:             c.Age,
			Generation:      c.Generation,
			Size:            float64(c.Size),
			Speed:           c.Speed,
			VisionRange:     float64(c.VisionRange),
			Metabolism:      c.Metabolism,
			FoodPreference:  c.FoodPreference,
			PlantPreference: c.PlantPreference,
		}
	}
	return samples
}

func (s *Simulation) flushTelemetry(samples []telemetry.CreatureSample) {
	row := s.collector.Flush(s.tick, samples)
	row.TPS = s.stats.TicksPerSecond
	if err := s.output.WriteTelemetry(row); err != nil {
		slog.Error("writing telemetry", "err", err)
	}
	if s.logStats {
		row.LogStats()
	}
}
