package sim

import (
	"math/rand"

	"github.com/pthm-cable/terrarium/brain"
	"github.com/pthm-cable/terrarium/config"
	"github.com/pthm-cable/terrarium/genetics"
)

// Creature is one grid-dwelling agent: a chromosome for its body, a brain
// for its behavior, and an energy budget tying the two together.
type Creature struct {
	ID         uint64
	X, Y       int
	Energy     float64
	Alive      bool
	Age        int
	Generation int

	OffspringCount int
	FoodEaten      int

	Chromosome *genetics.Chromosome
	Brain      *brain.Brain

	// Traits cached from the chromosome; RefreshTraits rereads them.
	Size                  int
	Speed                 float64
	VisionRange           int
	Metabolism            float64
	EnergyEfficiency      float64
	FoodPreference        float64
	PlantPreference       float64
	SunlightEfficiency    float64
	ReproductionThreshold float64
	OffspringEnergy       float64
	Color                 [3]uint8
}

// NewCreature rolls a fresh generation-zero creature: random chromosome,
// empty brain with the configured hyperparameters, half the energy cap.
func NewCreature(id uint64, x, y int, rng *rand.Rand) *Creature {
	cfg := config.Cfg()
	br := brain.New(cfg.Brain.LearningRate, cfg.Brain.DiscountFactor, cfg.Brain.ExplorationRate)
	return NewCreatureWith(id, x, y, genetics.NewChromosome(rng), br, cfg.Derived.InitialEnergy)
}

// NewCreatureWith builds a creature from explicit parts. Offspring and the
// snapshot load path come through here.
func NewCreatureWith(id uint64, x, y int, chrom *genetics.Chromosome, br *brain.Brain, energy float64) *Creature {
	c := &Creature{
		ID:         id,
		X:          x,
		Y:          y,
		Energy:     energy,
		Alive:      true,
		Chromosome: chrom,
		Brain:      br,
	}
	c.RefreshTraits()
	return c
}

// RefreshTraits rereads the cached trait values from the chromosome. Must
// be called after any post-construction mutation.
func (c *Creature) RefreshTraits() {
	g := c.Chromosome
	c.Size = int(g.Value(genetics.Size))
	c.Speed = g.Value(genetics.Speed)
	c.VisionRange = int(g.Value(genetics.VisionRange))
	c.Metabolism = g.Value(genetics.Metabolism)
	c.EnergyEfficiency = g.Value(genetics.EnergyEfficiency)
	c.FoodPreference = g.Value(genetics.FoodPreference)
	c.PlantPreference = g.Value(genetics.PlantPreference)
	c.SunlightEfficiency = g.Value(genetics.SunlightEfficiency)
	c.ReproductionThreshold = g.Value(genetics.ReproductionThreshold)
	c.OffspringEnergy = g.Value(genetics.OffspringEnergy)
	c.Color = [3]uint8{
		uint8(g.Value(genetics.ColorR)),
		uint8(g.Value(genetics.ColorG)),
		uint8(g.Value(genetics.ColorB)),
	}
}

// CanReproduce reports whether energy has reached the reproduction gate.
func (c *Creature) CanReproduce() bool {
	return c.Energy >= c.ReproductionThreshold
}

// Perceive scans the Euclidean disc of the creature's vision radius and
// reports which cell kinds are nearby, plus the internal readings the brain
// keys on. The creature's own cell is excluded; vision never wraps.
func (c *Creature) Perceive(w *World) brain.Perception {
	p := brain.Perception{Energy: c.Energy, CanReproduce: c.CanReproduce()}
	r := c.VisionRange
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if dx*dx+dy*dy > r*r {
				continue
			}
			x, y := c.X+dx, c.Y+dy
			if !w.InBounds(x, y) {
				continue
			}
			switch w.CellType(x, y) {
			case CellFood:
				p.FoodNearby = true
			case CellPlant:
				p.PlantNearby = true
			case CellWall:
				p.WallNearby = true
			case CellCreature:
				p.CreatureNearby = true
			}
		}
	}
	return p
}

// ValidActions lists what the creature could legally do right now, in fixed
// action order. Photosynthesize needs enough sunlight efficiency to be worth
// offering; Stay is always allowed, so the list is never empty.
func (c *Creature) ValidActions(w *World) []brain.Action {
	actions := make([]brain.Action, 0, brain.ActionCount)
	if w.IsWalkable(c.X, c.Y-1) {
		actions = append(actions, brain.MoveUp)
	}
	if w.IsWalkable(c.X, c.Y+1) {
		actions = append(actions, brain.MoveDown)
	}
	if w.IsWalkable(c.X-1, c.Y) {
		actions = append(actions, brain.MoveLeft)
	}
	if w.IsWalkable(c.X+1, c.Y) {
		actions = append(actions, brain.MoveRight)
	}
	if r := w.ResourceAt(c.X, c.Y); r != nil && (r.Kind == CellFood || r.Kind == CellPlant) {
		actions = append(actions, brain.Eat)
	}
	if c.CanReproduce() {
		actions = append(actions, brain.Reproduce)
	}
	if c.SunlightEfficiency > 0.3 {
		actions = append(actions, brain.Photosynthesize)
	}
	actions = append(actions, brain.Stay)
	return actions
}

// DecideAction perceives and chooses, returning the action together with
// the state it was chosen in; the learning step needs that state after the
// action resolves.
func (c *Creature) DecideAction(w *World, rng *rand.Rand) (brain.Action, brain.State) {
	state := brain.StateOf(c.Perceive(w))
	action := c.Brain.ChooseAction(rng, state, c.ValidActions(w))
	return action, state
}

// ExecuteAction applies the chosen action and returns its shaped reward.
// Every action carries a small base cost so doing anything is never free.
func (c *Creature) ExecuteAction(action brain.Action, w *World, rng *rand.Rand) float64 {
	reward := -0.1

	switch action {
	case brain.MoveUp:
		reward += c.step(w, c.X, c.Y-1)
	case brain.MoveDown:
		reward += c.step(w, c.X, c.Y+1)
	case brain.MoveLeft:
		reward += c.step(w, c.X-1, c.Y)
	case brain.MoveRight:
		reward += c.step(w, c.X+1, c.Y)
	case brain.Eat:
		if gain := w.ConsumeResource(c.X, c.Y, c); gain > 0 {
			c.Energy += gain * c.EnergyEfficiency
			c.FoodEaten++
			reward += gain
		}
	case brain.Reproduce:
		if child := c.Reproduce(w, rng); child != nil {
			reward += 20
			c.OffspringCount++
		}
	case brain.Photosynthesize:
		gain := w.cfg.World.SunlightIntensity * c.SunlightEfficiency * 0.1
		c.Energy += gain
		reward += gain * 0.5
	case brain.Stay:
		reward += 0.05
	}
	return reward
}

// step attempts one move and returns the reward delta: a size-scaled cost
// on success, nothing extra on failure.
func (c *Creature) step(w *World, nx, ny int) float64 {
	if !w.MoveCreature(c, nx, ny) {
		return 0
	}
	c.X, c.Y = nx, ny
	return -w.cfg.Creature.MovementCost * float64(c.Size)
}

// Reproduce tries to place a mutated offspring in one of the four adjacent
// cells, trying them in random order. The child enters the world
// immediately, so a second parent contesting the same cell this tick sees
// it occupied. The parent pays the reproduction cost only on success.
func (c *Creature) Reproduce(w *World, rng *rand.Rand) *Creature {
	if !c.CanReproduce() {
		return nil
	}

	spots := [4][2]int{
		{c.X, c.Y - 1},
		{c.X, c.Y + 1},
		{c.X - 1, c.Y},
		{c.X + 1, c.Y},
	}
	rng.Shuffle(len(spots), func(i, j int) { spots[i], spots[j] = spots[j], spots[i] })

	for _, spot := range spots {
		if !w.IsEmpty(spot[0], spot[1]) {
			continue
		}
		childGenes := c.Chromosome.Copy()
		childGenes.Mutate(rng, w.cfg.Creature.MutationRate)
		child := NewCreatureWith(w.NextID(), spot[0], spot[1], childGenes, c.Brain.Inherit(rng), c.OffspringEnergy)
		child.Generation = c.Generation + 1
		if w.AddCreature(child) {
			c.Energy -= w.cfg.Creature.ReproductionCost
			return child
		}
	}
	return nil
}

// Update runs the per-tick bookkeeping every creature gets regardless of
// its action: aging, metabolic drain, death at zero, and the energy cap.
func (c *Creature) Update() {
	c.Age++
	c.Energy -= c.metabolicCost()
	if c.Energy <= 0 {
		c.Alive = false
	}
	if c.Energy > c.maxEnergy() {
		c.Energy = c.maxEnergy()
	}
}

func (c *Creature) metabolicCost() float64 {
	return config.Cfg().Creature.EnergyDecay * c.Metabolism * float64(c.Size)
}

func (c *Creature) maxEnergy() float64 {
	return config.Cfg().Creature.MaxEnergy
}
