// Package sim implements the grid world, its creatures, and the tick
// scheduler that drives them.
package sim

import (
	"math/rand"

	"github.com/pthm-cable/terrarium/config"
)

// World owns the grid, every resource, and the canonical creature list.
// Cells are stored row-major; the resource and creature side tables are
// keyed by the same linear index. A cell can hold one creature standing on
// one resource at once; the tag always shows the top occupant.
type World struct {
	width, height int
	cells         []CellKind
	resources     map[int]*Resource
	creatures     map[int]*Creature
	list          []*Creature

	nextID uint64
	cfg    *config.Config
}

// NewEmptyWorld creates a blank bounded grid with no terrain.
func NewEmptyWorld(width, height int) *World {
	return &World{
		width:     width,
		height:    height,
		cells:     make([]CellKind, width*height),
		resources: make(map[int]*Resource),
		creatures: make(map[int]*Creature),
		nextID:    1,
		cfg:       config.Cfg(),
	}
}

// NewWorld creates a generated world: border walls, random interior wall
// clusters, and the configured scatter of food and plants.
func NewWorld(rng *rand.Rand) *World {
	cfg := config.Cfg()
	w := NewEmptyWorld(cfg.World.Width, cfg.World.Height)
	w.generate(rng)
	return w
}

func (w *World) generate(rng *rand.Rand) {
	for x := 0; x < w.width; x++ {
		w.PlaceWall(x, 0)
		w.PlaceWall(x, w.height-1)
	}
	for y := 0; y < w.height; y++ {
		w.PlaceWall(0, y)
		w.PlaceWall(w.width-1, y)
	}

	clusters := randInt(rng, 10, 20)
	for i := 0; i < clusters; i++ {
		cx := randInt(rng, 5, w.width-5)
		cy := randInt(rng, 5, w.height-5)
		size := randInt(rng, 3, 8)
		for j := 0; j < size; j++ {
			w.PlaceWall(cx+randInt(rng, -2, 2), cy+randInt(rng, -2, 2))
		}
	}

	// Scatter placement: attempts on occupied cells are simply lost.
	for i := 0; i < w.cfg.World.InitialFood; i++ {
		w.PlaceFood(rng, randInt(rng, 1, w.width-2), randInt(rng, 1, w.height-2))
	}
	for i := 0; i < w.cfg.World.InitialPlants; i++ {
		w.PlacePlant(rng, randInt(rng, 1, w.width-2), randInt(rng, 1, w.height-2))
	}
}

// randInt returns a uniform integer in [lo, hi], both ends inclusive.
func randInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func (w *World) index(x, y int) int { return y*w.width + x }

// Width returns the grid width in cells.
func (w *World) Width() int { return w.width }

// Height returns the grid height in cells.
func (w *World) Height() int { return w.height }

// InBounds reports whether (x, y) lies on the grid.
func (w *World) InBounds(x, y int) bool {
	return x >= 0 && x < w.width && y >= 0 && y < w.height
}

// CellType returns the occupancy tag at (x, y). Out-of-bounds coordinates
// read as walls, so the edge of the world behaves like solid terrain.
func (w *World) CellType(x, y int) CellKind {
	if !w.InBounds(x, y) {
		return CellWall
	}
	return w.cells[w.index(x, y)]
}

// IsEmpty reports whether (x, y) is in bounds and holds nothing at all.
func (w *World) IsEmpty(x, y int) bool {
	return w.InBounds(x, y) && w.cells[w.index(x, y)] == CellEmpty
}

// IsWalkable reports whether a creature may step onto (x, y). Food and
// plant cells are walkable; walls, creatures, and the outside are not.
func (w *World) IsWalkable(x, y int) bool {
	if !w.InBounds(x, y) {
		return false
	}
	switch w.cells[w.index(x, y)] {
	case CellEmpty, CellFood, CellPlant:
		return true
	}
	return false
}

// CreatureAt returns the creature occupying (x, y), nil if none.
func (w *World) CreatureAt(x, y int) *Creature {
	if !w.InBounds(x, y) {
		return nil
	}
	return w.creatures[w.index(x, y)]
}

// ResourceAt returns the resource recorded at (x, y), nil if none. The
// record may sit hidden under a creature standing on it.
func (w *World) ResourceAt(x, y int) *Resource {
	if !w.InBounds(x, y) {
		return nil
	}
	return w.resources[w.index(x, y)]
}

// Creatures returns the canonical creature list. Callers that mutate the
// world mid-iteration must snapshot it first.
func (w *World) Creatures() []*Creature { return w.list }

// ResourceCount returns the number of recorded resources, walls included.
func (w *World) ResourceCount() int { return len(w.resources) }

// Resources returns every recorded resource in grid order.
func (w *World) Resources() []*Resource {
	out := make([]*Resource, 0, len(w.resources))
	for i := 0; i < len(w.cells); i++ {
		if r, ok := w.resources[i]; ok {
			out = append(out, r)
		}
	}
	return out
}

// NextID hands out monotonically increasing creature ids.
func (w *World) NextID() uint64 {
	id := w.nextID
	w.nextID++
	return id
}

// SetNextID raises the id allocator floor; the load path uses it so
// restored ids never collide with newly issued ones.
func (w *World) SetNextID(n uint64) {
	if n > w.nextID {
		w.nextID = n
	}
}

// underlying is the tag a cell shows once no creature stands on it.
func (w *World) underlying(i int) CellKind {
	if r := w.resources[i]; r != nil {
		return r.Kind
	}
	return CellEmpty
}

// place records a resource and surfaces its tag unless a creature covers it.
func (w *World) place(r *Resource) {
	i := w.index(r.X, r.Y)
	w.resources[i] = r
	if w.creatures[i] == nil {
		w.cells[i] = r.Kind
	}
}

// PlaceFood puts a fresh food item at (x, y) if the cell is empty.
func (w *World) PlaceFood(rng *rand.Rand, x, y int) bool {
	if !w.IsEmpty(x, y) {
		return false
	}
	w.place(NewFood(rng, x, y))
	return true
}

// PlacePlant puts a fresh plant at (x, y) if the cell is empty.
func (w *World) PlacePlant(rng *rand.Rand, x, y int) bool {
	if !w.IsEmpty(x, y) {
		return false
	}
	w.place(NewPlant(rng, x, y))
	return true
}

// PlaceWall puts a wall at (x, y). Walls only need the cell to exist and
// overwrite whatever resource record was there.
func (w *World) PlaceWall(x, y int) bool {
	if !w.InBounds(x, y) {
		return false
	}
	w.place(NewWall(x, y))
	return true
}

// RestoreResource records a fully-formed resource from a snapshot without
// re-rolling anything. Fails if the cell already has a record.
func (w *World) RestoreResource(r *Resource) bool {
	if !w.InBounds(r.X, r.Y) {
		return false
	}
	if w.resources[w.index(r.X, r.Y)] != nil {
		return false
	}
	w.place(r)
	return true
}

// AddCreature registers c at its own coordinates. Fails without mutating
// anything unless the target cell is empty.
func (w *World) AddCreature(c *Creature) bool {
	if !w.IsEmpty(c.X, c.Y) {
		return false
	}
	i := w.index(c.X, c.Y)
	w.cells[i] = CellCreature
	w.creatures[i] = c
	w.list = append(w.list, c)
	return true
}

// RestoreCreature registers a fully-formed creature from a snapshot. Unlike
// AddCreature it may stand on a food or plant cell, which happens when a
// creature was saved mid-stand. Walls and other creatures still block.
func (w *World) RestoreCreature(c *Creature) bool {
	if !w.InBounds(c.X, c.Y) {
		return false
	}
	i := w.index(c.X, c.Y)
	if w.creatures[i] != nil || w.cells[i] == CellWall {
		return false
	}
	w.cells[i] = CellCreature
	w.creatures[i] = c
	w.list = append(w.list, c)
	return true
}

// RemoveCreature deregisters c and reverts its cell to whatever resource
// remains beneath it. A creature that is not the indexed occupant of its
// own cell is left alone.
func (w *World) RemoveCreature(c *Creature) {
	if !w.InBounds(c.X, c.Y) {
		return
	}
	i := w.index(c.X, c.Y)
	if w.creatures[i] != c {
		return
	}
	delete(w.creatures, i)
	w.cells[i] = w.underlying(i)
	for j, other := range w.list {
		if other == c {
			w.list = append(w.list[:j], w.list[j+1:]...)
			break
		}
	}
}

// MoveCreature shifts c to (nx, ny) if that cell is walkable, reverting the
// old cell to its underlying resource. On failure nothing changes. The
// creature's own coordinates are its business; it updates them after a
// successful move.
func (w *World) MoveCreature(c *Creature, nx, ny int) bool {
	if !w.IsWalkable(nx, ny) {
		return false
	}
	old := w.index(c.X, c.Y)
	if w.creatures[old] == c {
		delete(w.creatures, old)
		w.cells[old] = w.underlying(old)
	}
	ni := w.index(nx, ny)
	w.cells[ni] = CellCreature
	w.creatures[ni] = c
	return true
}

// ConsumeResource feeds c whatever sits at (x, y), scaled by the matching
// preference gene. A gain of zero leaves the resource untouched; otherwise
// the resource is gone and the consumer owns the cell.
func (w *World) ConsumeResource(x, y int, c *Creature) float64 {
	if !w.InBounds(x, y) {
		return 0
	}
	i := w.index(x, y)
	r := w.resources[i]
	if r == nil {
		return 0
	}
	var gain float64
	switch r.Kind {
	case CellFood:
		gain = r.EnergyValue * c.FoodPreference
	case CellPlant:
		gain = r.EnergyValue * c.PlantPreference
	}
	if gain > 0 {
		delete(w.resources, i)
		w.cells[i] = CellCreature
	}
	return gain
}

// UpdateResources ages every resource, then makes at most one food and one
// plant respawn attempt. An attempt landing on an occupied cell is lost.
func (w *World) UpdateResources(rng *rand.Rand) {
	for _, r := range w.resources {
		r.Update()
	}
	if rng.Float64() < w.cfg.World.FoodRespawnRate {
		w.PlaceFood(rng, randInt(rng, 1, w.width-2), randInt(rng, 1, w.height-2))
	}
	if rng.Float64() < w.cfg.World.PlantGrowthRate {
		w.PlacePlant(rng, randInt(rng, 1, w.width-2), randInt(rng, 1, w.height-2))
	}
}
