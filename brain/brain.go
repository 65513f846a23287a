// Package brain implements the tabular Q-learning policy creatures act on.
package brain

import (
	"math/rand"
	"sort"
)

// ActionCount is the number of actions; Q-value rows use it as length.
const ActionCount = 8

// Action is one of the eight things a creature can do in a tick.
type Action uint8

const (
	MoveUp Action = iota
	MoveDown
	MoveLeft
	MoveRight
	Eat
	Reproduce
	Photosynthesize
	Stay
)

var actionNames = [ActionCount]string{
	"move_up", "move_down", "move_left", "move_right",
	"eat", "reproduce", "photosynthesize", "stay",
}

var allActions = [ActionCount]Action{
	MoveUp, MoveDown, MoveLeft, MoveRight, Eat, Reproduce, Photosynthesize, Stay,
}

// String returns the action name used in logs and telemetry.
func (a Action) String() string {
	if int(a) >= ActionCount {
		return "unknown"
	}
	return actionNames[a]
}

// Perception is what a creature hands its brain after scanning the world.
type Perception struct {
	FoodNearby     bool
	PlantNearby    bool
	WallNearby     bool
	CreatureNearby bool
	Energy         float64
	CanReproduce   bool
}

// State is the discretized situation key for the Q-table. Energy collapses
// into 20-point buckets so similar situations share a table row.
type State struct {
	EnergyLevel    int
	FoodNearby     bool
	PlantNearby    bool
	WallNearby     bool
	CreatureNearby bool
	CanReproduce   bool
}

// StateOf discretizes a perception into a table key.
func StateOf(p Perception) State {
	return State{
		EnergyLevel:    int(p.Energy / 20),
		FoodNearby:     p.FoodNearby,
		PlantNearby:    p.PlantNearby,
		WallNearby:     p.WallNearby,
		CreatureNearby: p.CreatureNearby,
		CanReproduce:   p.CanReproduce,
	}
}

// key packs the state into one ordered integer for stable sorting.
func (s State) key() int {
	k := s.EnergyLevel << 5
	if s.FoodNearby {
		k |= 16
	}
	if s.PlantNearby {
		k |= 8
	}
	if s.WallNearby {
		k |= 4
	}
	if s.CreatureNearby {
		k |= 2
	}
	if s.CanReproduce {
		k |= 1
	}
	return k
}

// Brain is a tabular Q-learning policy. Hyperparameters are fixed at
// construction and inherited unchanged by offspring.
type Brain struct {
	LearningRate    float64
	DiscountFactor  float64
	ExplorationRate float64

	table map[State]*[ActionCount]float64
}

// New creates an empty brain with the given hyperparameters.
func New(learningRate, discountFactor, explorationRate float64) *Brain {
	return &Brain{
		LearningRate:    learningRate,
		DiscountFactor:  discountFactor,
		ExplorationRate: explorationRate,
		table:           make(map[State]*[ActionCount]float64),
	}
}

// row returns the Q-value row for a state, inserting a zero row when absent.
// This is the only place rows come into existence.
func (b *Brain) row(s State) *[ActionCount]float64 {
	r, ok := b.table[s]
	if !ok {
		r = new([ActionCount]float64)
		b.table[s] = r
	}
	return r
}

// Value returns Q(s, a). Unseen states read as zero without materializing.
func (b *Brain) Value(s State, a Action) float64 {
	if r, ok := b.table[s]; ok {
		return r[a]
	}
	return 0
}

// maxValue is the highest Q-value stored for s, zero when s is unseen.
func (b *Brain) maxValue(s State) float64 {
	r, ok := b.table[s]
	if !ok {
		return 0
	}
	max := r[0]
	for _, v := range r[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// ChooseAction picks epsilon-greedily among valid actions. Ties go to the
// earliest valid action so runs stay reproducible. A nil or empty valid set
// means every action is allowed.
func (b *Brain) ChooseAction(rng *rand.Rand, s State, valid []Action) Action {
	if len(valid) == 0 {
		valid = allActions[:]
	}
	if rng.Float64() < b.ExplorationRate {
		return valid[rng.Intn(len(valid))]
	}
	best := valid[0]
	bestV := b.Value(s, best)
	for _, a := range valid[1:] {
		if v := b.Value(s, a); v > bestV {
			best, bestV = a, v
		}
	}
	return best
}

// Learn applies the one-step temporal difference update for a completed
// state/action/reward/next-state transition.
func (b *Brain) Learn(s State, a Action, reward float64, next State) {
	r := b.row(s)
	target := reward + b.DiscountFactor*b.maxValue(next)
	r[a] += b.LearningRate * (target - r[a])
}

// Len returns the number of states the brain has seen.
func (b *Brain) Len() int {
	return len(b.table)
}

// Inherit returns the offspring copy of the policy: every stored value gets
// Gaussian noise with sigma 0.1, hyperparameters carry over unchanged. Rows
// are noised in sorted state order so the draw sequence is stable.
func (b *Brain) Inherit(rng *rand.Rand) *Brain {
	child := New(b.LearningRate, b.DiscountFactor, b.ExplorationRate)
	for _, s := range b.sortedStates() {
		src := b.table[s]
		dst := new([ActionCount]float64)
		for i, v := range src {
			dst[i] = v + rng.NormFloat64()*0.1
		}
		child.table[s] = dst
	}
	return child
}

// TableEntry is one persisted Q-table row.
type TableEntry struct {
	State  State
	Values [ActionCount]float64
}

// Export returns the policy as entries in sorted state order, so persisted
// output is stable for a given brain.
func (b *Brain) Export() []TableEntry {
	entries := make([]TableEntry, 0, len(b.table))
	for _, s := range b.sortedStates() {
		entries = append(entries, TableEntry{State: s, Values: *b.table[s]})
	}
	return entries
}

// Restore rebuilds a brain from persisted hyperparameters and rows.
func Restore(learningRate, discountFactor, explorationRate float64, entries []TableEntry) *Brain {
	b := New(learningRate, discountFactor, explorationRate)
	for _, e := range entries {
		vals := e.Values
		b.table[e.State] = &vals
	}
	return b
}

func (b *Brain) sortedStates() []State {
	states := make([]State, 0, len(b.table))
	for s := range b.table {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].key() < states[j].key() })
	return states
}
