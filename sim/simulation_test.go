package sim

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/terrarium/config"
	"github.com/pthm-cable/terrarium/genetics"
	"github.com/pthm-cable/terrarium/telemetry"
)

func TestNewSimulationSpawnsPopulation(t *testing.T) {
	s := NewSimulation(42)
	w := s.World()

	if got := len(w.Creatures()); got != config.Cfg().Population.Initial {
		t.Errorf("population = %d, want %d", got, config.Cfg().Population.Initial)
	}
	if got := s.Stats().TotalBirths; got != len(w.Creatures()) {
		t.Errorf("TotalBirths = %d, want every spawn counted (%d)", got, len(w.Creatures()))
	}
	if s.Tick() != 0 || !s.Running() {
		t.Errorf("fresh simulation: tick %d, running %v", s.Tick(), s.Running())
	}

	ids := map[uint64]bool{}
	for _, c := range w.Creatures() {
		if !c.Alive {
			t.Errorf("creature %d spawned dead", c.ID)
		}
		if w.CreatureAt(c.X, c.Y) != c {
			t.Errorf("creature %d not indexed at its own cell", c.ID)
		}
		if ids[c.ID] {
			t.Errorf("creature id %d issued twice", c.ID)
		}
		ids[c.ID] = true
	}
}

func TestUpdateAdvancesTickAndStats(t *testing.T) {
	s := NewSimulation(1)
	for i := 0; i < 5; i++ {
		s.Update()
	}

	if s.Tick() != 5 {
		t.Errorf("tick = %d, want 5", s.Tick())
	}
	st := s.Stats()
	if st.Ticks != 5 {
		t.Errorf("stats ticks = %d, want 5", st.Ticks)
	}
	if st.Population != len(s.World().Creatures()) {
		t.Errorf("stats population = %d, world has %d", st.Population, len(s.World().Creatures()))
	}
	if st.PeakPopulation < st.Population {
		t.Errorf("peak %d below current %d", st.PeakPopulation, st.Population)
	}
}

func TestStopHaltsUpdates(t *testing.T) {
	s := NewSimulation(3)
	s.Update()
	s.Stop()
	s.Update()

	if s.Tick() != 1 {
		t.Errorf("tick = %d, want 1 after stop", s.Tick())
	}
	if s.Running() {
		t.Error("still running after Stop")
	}
}

func TestRemoveDeadSweep(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	w := NewEmptyWorld(10, 10)
	doomed := NewCreature(w.NextID(), 3, 3, rng)
	forceGene(doomed, genetics.Metabolism, 1.0)
	forceGene(doomed, genetics.Size, 5)
	forceGene(doomed, genetics.ReproductionThreshold, 100)
	doomed.Energy = 1
	w.AddCreature(doomed)

	s := NewSimulationFrom(w, telemetry.NewStatistics(), rng, 5)
	s.Update()

	if doomed.Alive {
		t.Error("creature survived with no energy")
	}
	if len(w.Creatures()) != 0 {
		t.Errorf("population = %d, want 0", len(w.Creatures()))
	}
	if w.CreatureAt(doomed.X, doomed.Y) != nil {
		t.Error("dead creature still indexed")
	}
	if got := s.Stats().TotalDeaths; got != 1 {
		t.Errorf("TotalDeaths = %d, want 1", got)
	}
	if !s.Extinct() {
		t.Error("Extinct() = false with nobody left")
	}
	// Extinction is the caller's problem; the world keeps ticking.
	if !s.Running() {
		t.Error("simulation stopped itself on extinction")
	}
	s.Update()
	if s.Tick() != 2 {
		t.Errorf("tick = %d, want an empty world to keep advancing", s.Tick())
	}
}

func TestPopulationCapEvictsOldest(t *testing.T) {
	cfg := config.Cfg()
	oldMax := cfg.Population.Max
	cfg.Population.Max = 5
	t.Cleanup(func() { cfg.Population.Max = oldMax })

	rng := rand.New(rand.NewSource(7))
	w := NewEmptyWorld(20, 20)
	for i := 0; i < 10; i++ {
		c := NewCreature(w.NextID(), 2+i, 2, rng)
		forceGene(c, genetics.ReproductionThreshold, 100)
		forceGene(c, genetics.Metabolism, 0.1)
		forceGene(c, genetics.Size, 1)
		c.Energy = 50
		c.Age = i * 10
		w.AddCreature(c)
	}

	s := NewSimulationFrom(w, telemetry.NewStatistics(), rng, 7)
	s.Update()

	if got := len(w.Creatures()); got != 5 {
		t.Fatalf("population = %d, want capped at 5", got)
	}
	// Ages ticked to 1, 11, ..., 91 before eviction; the youngest five
	// survive.
	for _, c := range w.Creatures() {
		if c.Age > 41 {
			t.Errorf("creature aged %d survived eviction", c.Age)
		}
	}
	if got := s.Stats().TotalDeaths; got != 5 {
		t.Errorf("TotalDeaths = %d, want 5 evictions counted", got)
	}
}

func TestBirthsRegister(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	w := NewEmptyWorld(12, 12)
	parent := NewCreature(w.NextID(), 6, 6, rng)
	forceGene(parent, genetics.ReproductionThreshold, 50)
	forceGene(parent, genetics.Metabolism, 0.1)
	forceGene(parent, genetics.Size, 1)
	parent.Energy = 150
	parent.Brain.ExplorationRate = 1 // uniform over valid actions
	w.AddCreature(parent)

	s := NewSimulationFrom(w, telemetry.NewStatistics(), rng, 11)
	for i := 0; i < 300 && s.Stats().TotalBirths == 0; i++ {
		s.Update()
	}

	if s.Stats().TotalBirths == 0 {
		t.Fatal("no birth recorded in 300 ticks of random behavior")
	}
	var child *Creature
	for _, c := range w.Creatures() {
		if c.Generation == 1 {
			child = c
		}
	}
	if child == nil {
		t.Fatal("no generation-1 creature in the world")
	}
	if s.Stats().MaxGeneration < 1 {
		t.Errorf("MaxGeneration = %d, want at least 1", s.Stats().MaxGeneration)
	}
}

func TestSameSeedSameHistory(t *testing.T) {
	run := func() *Simulation {
		s := NewSimulation(99)
		for i := 0; i < 40; i++ {
			s.Update()
		}
		return s
	}
	a, b := run(), run()

	if a.Tick() != b.Tick() {
		t.Fatalf("ticks diverged: %d vs %d", a.Tick(), b.Tick())
	}
	sa, sb := a.Stats(), b.Stats()
	if sa.TotalBirths != sb.TotalBirths || sa.TotalDeaths != sb.TotalDeaths {
		t.Errorf("counters diverged: births %d/%d, deaths %d/%d",
			sa.TotalBirths, sb.TotalBirths, sa.TotalDeaths, sb.TotalDeaths)
	}
	la, lb := a.World().Creatures(), b.World().Creatures()
	if len(la) != len(lb) {
		t.Fatalf("population diverged: %d vs %d", len(la), len(lb))
	}
	for i := range la {
		ca, cb := la[i], lb[i]
		if ca.ID != cb.ID || ca.X != cb.X || ca.Y != cb.Y || ca.Energy != cb.Energy ||
			ca.Age != cb.Age || ca.Generation != cb.Generation {
			t.Fatalf("creature %d diverged:\n%+v\n%+v", i, ca, cb)
		}
	}
	if a.World().ResourceCount() != b.World().ResourceCount() {
		t.Errorf("resources diverged: %d vs %d", a.World().ResourceCount(), b.World().ResourceCount())
	}
}

func TestOccupancyStaysConsistent(t *testing.T) {
	s := NewSimulation(12345)
	for i := 0; i < 30; i++ {
		s.Update()
	}
	w := s.World()

	indexed := 0
	for y := 0; y < w.Height(); y++ {
		for x := 0; x < w.Width(); x++ {
			i := w.index(x, y)
			tag := w.cells[i]
			r := w.resources[i]
			c := w.creatures[i]
			switch {
			case c != nil:
				if tag != CellCreature {
					t.Fatalf("(%d,%d) holds a creature but is tagged %v", x, y, tag)
				}
				if c.X != x || c.Y != y {
					t.Fatalf("creature %d indexed at (%d,%d) thinks it is at (%d,%d)", c.ID, x, y, c.X, c.Y)
				}
				indexed++
			case r != nil:
				if tag != r.Kind {
					t.Fatalf("(%d,%d) tagged %v over a %v record", x, y, tag, r.Kind)
				}
			default:
				if tag != CellEmpty {
					t.Fatalf("(%d,%d) tagged %v with nothing there", x, y, tag)
				}
			}
		}
	}

	if indexed != len(w.Creatures()) {
		t.Errorf("indexed %d creatures, list has %d", indexed, len(w.Creatures()))
	}
	for _, c := range w.Creatures() {
		if !c.Alive {
			t.Errorf("dead creature %d still listed", c.ID)
		}
		if w.CreatureAt(c.X, c.Y) != c {
			t.Errorf("creature %d not the occupant of its own cell", c.ID)
		}
	}
}

func TestResumeContinuesTicks(t *testing.T) {
	stats := telemetry.RestoreStatistics(telemetry.Statistics{Ticks: 500})
	rng := rand.New(rand.NewSource(1))
	w := NewEmptyWorld(10, 10)
	c := NewCreature(w.NextID(), 5, 5, rng)
	forceGene(c, genetics.Metabolism, 0.1)
	w.AddCreature(c)

	s := NewSimulationFrom(w, stats, rng, 1)
	if s.Tick() != 500 {
		t.Fatalf("resumed tick = %d, want 500", s.Tick())
	}
	s.Update()
	if s.Tick() != 501 {
		t.Errorf("tick after resume = %d, want 501", s.Tick())
	}
	if stats.Ticks != 501 {
		t.Errorf("stats ticks = %d, want 501", stats.Ticks)
	}
}
