package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/terrarium/config"
	"github.com/pthm-cable/terrarium/genetics"
)

func init() {
	config.MustInit("")
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewEmptyWorld(t *testing.T) {
	w := NewEmptyWorld(10, 8)
	if w.Width() != 10 || w.Height() != 8 {
		t.Errorf("dimensions = %dx%d, want 10x8", w.Width(), w.Height())
	}
	if got := w.CellType(5, 4); got != CellEmpty {
		t.Errorf("CellType(5,4) = %v, want empty", got)
	}
	if got := w.CellType(-1, 0); got != CellWall {
		t.Errorf("CellType(-1,0) = %v, want wall", got)
	}
	if got := w.CellType(10, 0); got != CellWall {
		t.Errorf("CellType(10,0) = %v, want wall", got)
	}
	if !w.IsEmpty(3, 3) {
		t.Error("interior cell should start empty")
	}
	if w.IsWalkable(0, -1) {
		t.Error("out of bounds should not be walkable")
	}
}

func TestPlaceResources(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	w := NewEmptyWorld(10, 10)

	if !w.PlaceFood(rng, 2, 2) {
		t.Fatal("PlaceFood on empty cell failed")
	}
	if got := w.CellType(2, 2); got != CellFood {
		t.Errorf("CellType = %v, want food", got)
	}
	r := w.ResourceAt(2, 2)
	if r == nil || r.Kind != CellFood {
		t.Fatalf("ResourceAt = %+v, want food record", r)
	}
	if r.EnergyValue < 10 || r.EnergyValue > 20 {
		t.Errorf("food energy = %v, want in [10, 20]", r.EnergyValue)
	}

	// Occupied cells reject placement.
	if w.PlaceFood(rng, 2, 2) {
		t.Error("PlaceFood on occupied cell succeeded")
	}
	if w.PlacePlant(rng, 2, 2) {
		t.Error("PlacePlant on occupied cell succeeded")
	}

	if !w.PlacePlant(rng, 3, 3) {
		t.Fatal("PlacePlant on empty cell failed")
	}
	p := w.ResourceAt(3, 3)
	if p.EnergyValue < 5 || p.EnergyValue > 15 {
		t.Errorf("plant energy = %v, want in [5, 15]", p.EnergyValue)
	}
	if p.MaxGrowth != plantMaxGrowth {
		t.Errorf("plant MaxGrowth = %d, want %d", p.MaxGrowth, plantMaxGrowth)
	}

	// Walls overwrite whatever record was there.
	if !w.PlaceWall(2, 2) {
		t.Fatal("PlaceWall failed")
	}
	if got := w.CellType(2, 2); got != CellWall {
		t.Errorf("CellType after wall = %v, want wall", got)
	}
	if got := w.ResourceAt(2, 2).Kind; got != CellWall {
		t.Errorf("record after wall = %v, want wall", got)
	}
}

func TestOccupancyLayering(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	w := NewEmptyWorld(10, 10)
	w.PlaceFood(rng, 4, 4)

	c := NewCreature(w.NextID(), 4, 3, rng)
	if !w.AddCreature(c) {
		t.Fatal("AddCreature failed")
	}

	// Stepping onto food covers its tag but keeps the record.
	if !w.MoveCreature(c, 4, 4) {
		t.Fatal("MoveCreature onto food failed")
	}
	c.X, c.Y = 4, 4
	if got := w.CellType(4, 4); got != CellCreature {
		t.Errorf("CellType = %v, want creature on top", got)
	}
	if w.ResourceAt(4, 4) == nil {
		t.Error("food record lost under creature")
	}
	if got := w.CellType(4, 3); got != CellEmpty {
		t.Errorf("vacated cell = %v, want empty", got)
	}

	// Stepping off reveals the food again.
	if !w.MoveCreature(c, 5, 4) {
		t.Fatal("MoveCreature off food failed")
	}
	c.X, c.Y = 5, 4
	if got := w.CellType(4, 4); got != CellFood {
		t.Errorf("CellType after leaving = %v, want food", got)
	}
}

func TestRemoveCreatureRevertsTag(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	w := NewEmptyWorld(10, 10)
	w.PlaceFood(rng, 3, 3)

	c := NewCreature(w.NextID(), 3, 3, rng)
	if !w.RestoreCreature(c) {
		t.Fatal("RestoreCreature onto food failed")
	}
	w.RemoveCreature(c)

	if got := w.CellType(3, 3); got != CellFood {
		t.Errorf("CellType after removal = %v, want food", got)
	}
	if w.CreatureAt(3, 3) != nil {
		t.Error("creature still indexed after removal")
	}
	if len(w.Creatures()) != 0 {
		t.Errorf("list length = %d, want 0", len(w.Creatures()))
	}

	// Removing twice is harmless.
	w.RemoveCreature(c)
}

func TestMoveCreatureBlocked(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	w := NewEmptyWorld(10, 10)
	w.PlaceWall(5, 4)

	c := NewCreature(w.NextID(), 5, 5, rng)
	w.AddCreature(c)
	other := NewCreature(w.NextID(), 6, 5, rng)
	w.AddCreature(other)

	if w.MoveCreature(c, 5, 4) {
		t.Error("moved into a wall")
	}
	if w.MoveCreature(c, 6, 5) {
		t.Error("moved into another creature")
	}
	if got := w.CellType(5, 5); got != CellCreature {
		t.Errorf("failed moves disturbed the cell: %v", got)
	}

	edge := NewCreature(w.NextID(), 0, 0, rng)
	w.AddCreature(edge)
	if w.MoveCreature(edge, 0, -1) {
		t.Error("moved out of bounds")
	}
}

func TestAddCreatureRules(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	w := NewEmptyWorld(10, 10)
	w.PlaceFood(rng, 2, 2)
	w.PlaceWall(4, 4)

	// AddCreature needs a fully empty cell.
	if w.AddCreature(NewCreature(w.NextID(), 2, 2, rng)) {
		t.Error("AddCreature succeeded on a food cell")
	}

	// The restore path may stand on food, but not walls or creatures.
	c := NewCreature(w.NextID(), 2, 2, rng)
	if !w.RestoreCreature(c) {
		t.Fatal("RestoreCreature onto food failed")
	}
	if got := w.CellType(2, 2); got != CellCreature {
		t.Errorf("CellType = %v, want creature", got)
	}
	if w.ResourceAt(2, 2) == nil {
		t.Error("food record lost under restored creature")
	}
	if w.RestoreCreature(NewCreature(w.NextID(), 2, 2, rng)) {
		t.Error("RestoreCreature succeeded onto an occupied cell")
	}
	if w.RestoreCreature(NewCreature(w.NextID(), 4, 4, rng)) {
		t.Error("RestoreCreature succeeded onto a wall")
	}
}

func TestConsumeResource(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	w := NewEmptyWorld(10, 10)

	w.PlaceFood(rng, 2, 2)
	w.ResourceAt(2, 2).EnergyValue = 12
	c := NewCreature(w.NextID(), 2, 2, rng)
	forceGene(c, genetics.FoodPreference, 0.5)
	w.RestoreCreature(c)

	if gain := w.ConsumeResource(2, 2, c); !almostEqual(gain, 6) {
		t.Errorf("gain = %v, want 6", gain)
	}
	if w.ResourceAt(2, 2) != nil {
		t.Error("consumed resource still recorded")
	}
	if got := w.CellType(2, 2); got != CellCreature {
		t.Errorf("CellType after consume = %v, want creature", got)
	}

	// Zero preference means zero gain and the resource survives.
	w.PlacePlant(rng, 5, 5)
	w.ResourceAt(5, 5).EnergyValue = 8
	c2 := NewCreature(w.NextID(), 5, 5, rng)
	forceGene(c2, genetics.PlantPreference, 0)
	w.RestoreCreature(c2)

	if gain := w.ConsumeResource(5, 5, c2); gain != 0 {
		t.Errorf("gain = %v, want 0", gain)
	}
	if w.ResourceAt(5, 5) == nil {
		t.Error("unconsumable resource was removed")
	}

	if gain := w.ConsumeResource(8, 8, c2); gain != 0 {
		t.Errorf("gain on empty cell = %v, want 0", gain)
	}
}

func TestNextID(t *testing.T) {
	w := NewEmptyWorld(5, 5)
	if got := w.NextID(); got != 1 {
		t.Errorf("first id = %d, want 1", got)
	}
	if got := w.NextID(); got != 2 {
		t.Errorf("second id = %d, want 2", got)
	}
	w.SetNextID(10)
	if got := w.NextID(); got != 10 {
		t.Errorf("id after raise = %d, want 10", got)
	}
	w.SetNextID(5) // lowering is ignored
	if got := w.NextID(); got != 11 {
		t.Errorf("id after ignored lower = %d, want 11", got)
	}
}

func TestGeneratedWorld(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	w := NewWorld(rng)
	cfg := config.Cfg()

	if w.Width() != cfg.World.Width || w.Height() != cfg.World.Height {
		t.Fatalf("dimensions = %dx%d, want %dx%d", w.Width(), w.Height(), cfg.World.Width, cfg.World.Height)
	}

	for x := 0; x < w.Width(); x++ {
		if w.CellType(x, 0) != CellWall || w.CellType(x, w.Height()-1) != CellWall {
			t.Fatalf("border not walled at column %d", x)
		}
	}
	for y := 0; y < w.Height(); y++ {
		if w.CellType(0, y) != CellWall || w.CellType(w.Width()-1, y) != CellWall {
			t.Fatalf("border not walled at row %d", y)
		}
	}

	var food, plants, walls int
	for _, r := range w.Resources() {
		switch r.Kind {
		case CellFood:
			food++
		case CellPlant:
			plants++
		case CellWall:
			walls++
		}
	}
	if food == 0 || plants == 0 {
		t.Errorf("generation scattered no resources: food %d, plants %d", food, plants)
	}
	if min := 2*w.Width() + 2*w.Height() - 4; walls < min {
		t.Errorf("walls = %d, want at least the border %d", walls, min)
	}

	// Tags and records agree everywhere before any creature moves.
	for y := 0; y < w.Height(); y++ {
		for x := 0; x < w.Width(); x++ {
			r := w.ResourceAt(x, y)
			tag := w.CellType(x, y)
			if r == nil && tag != CellEmpty {
				t.Fatalf("(%d,%d) tagged %v with no record", x, y, tag)
			}
			if r != nil && tag != r.Kind {
				t.Fatalf("(%d,%d) tagged %v over a %v record", x, y, tag, r.Kind)
			}
		}
	}
}

func TestUpdateResources(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	w := NewEmptyWorld(20, 20)
	w.PlacePlant(rng, 5, 5)
	p := w.ResourceAt(5, 5)

	rounds := plantMaxGrowth + 3
	for i := 0; i < rounds; i++ {
		w.UpdateResources(rng)
	}

	if p.Age != rounds {
		t.Errorf("plant age = %d, want %d", p.Age, rounds)
	}
	if p.GrowthStage != plantMaxGrowth {
		t.Errorf("growth stage = %d, want capped at %d", p.GrowthStage, plantMaxGrowth)
	}
	if !almostEqual(p.EnergyValue, 15) {
		t.Errorf("grown plant energy = %v, want 15", p.EnergyValue)
	}

	// Respawn rolls should have landed something new by now.
	if w.ResourceCount() <= 1 {
		t.Errorf("resource count = %d, want respawns after %d rounds", w.ResourceCount(), rounds)
	}
}
