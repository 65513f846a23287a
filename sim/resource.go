package sim

import "math/rand"

// CellKind tags what occupies a grid cell.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellWall
	CellFood
	CellPlant
	CellCreature
)

var cellNames = [...]string{"empty", "wall", "food", "plant", "creature"}

// String returns the tag name used in logs and snapshots.
func (k CellKind) String() string {
	if int(k) >= len(cellNames) {
		return "unknown"
	}
	return cellNames[k]
}

// plantMaxGrowth is the number of growth stages a plant passes through.
const plantMaxGrowth = 10

// Resource is a wall, food item, or plant occupying one cell.
type Resource struct {
	Kind        CellKind
	X, Y        int
	EnergyValue float64
	Age         int
	GrowthStage int // plants only
	MaxGrowth   int // plants only
}

// NewFood creates a food item worth a random 10 to 20 energy.
func NewFood(rng *rand.Rand, x, y int) *Resource {
	return &Resource{Kind: CellFood, X: x, Y: y, EnergyValue: 10 + rng.Float64()*10}
}

// NewPlant creates an ungrown plant worth a random 5 to 15 energy.
func NewPlant(rng *rand.Rand, x, y int) *Resource {
	return &Resource{Kind: CellPlant, X: x, Y: y, EnergyValue: 5 + rng.Float64()*10, MaxGrowth: plantMaxGrowth}
}

// NewWall creates a permanent wall block.
func NewWall(x, y int) *Resource {
	return &Resource{Kind: CellWall, X: x, Y: y}
}

// Update ages the resource one tick. Plants also advance one growth stage,
// their energy tracking growth until it tops out at 15.
func (r *Resource) Update() {
	r.Age++
	if r.Kind == CellPlant && r.GrowthStage < r.MaxGrowth {
		r.GrowthStage++
		r.EnergyValue = 5 + 10*float64(r.GrowthStage)/float64(r.MaxGrowth)
	}
}
