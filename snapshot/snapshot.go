// Package snapshot saves and restores complete simulation state as
// versioned JSON, one file per save plus a short text summary.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pthm-cable/terrarium/brain"
	"github.com/pthm-cable/terrarium/config"
	"github.com/pthm-cable/terrarium/genetics"
	"github.com/pthm-cable/terrarium/sim"
	"github.com/pthm-cable/terrarium/telemetry"
)

// Version is bumped whenever the layout changes; Load rejects files
// written under a different layout.
const Version = 1

// File is the on-disk snapshot layout.
type File struct {
	Version   int                  `json:"version"`
	SavedAt   time.Time            `json:"saved_at"`
	Seed      int64                `json:"seed"`
	Tick      int                  `json:"tick"`
	Config    ConfigState          `json:"config"`
	World     WorldState           `json:"world"`
	Stats     telemetry.Statistics `json:"stats"`
	Resources []ResourceState      `json:"resources"`
	Creatures []CreatureState      `json:"creatures"`
}

// ConfigState echoes the headline settings the run was saved under.
// Restore does not read it back; loads run under the current config.
type ConfigState struct {
	WorldWidth   int     `json:"world_width"`
	WorldHeight  int     `json:"world_height"`
	MutationRate float64 `json:"mutation_rate"`
	MaxCreatures int     `json:"max_creatures"`
}

// WorldState records the grid dimensions.
type WorldState struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ResourceState records one wall, food item, or plant.
type ResourceState struct {
	Kind        string  `json:"kind"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	EnergyValue float64 `json:"energy_value,omitempty"`
	Age         int     `json:"age,omitempty"`
	GrowthStage int     `json:"growth_stage,omitempty"`
	MaxGrowth   int     `json:"max_growth,omitempty"`
}

// CreatureState records one creature with its genes and learned policy.
type CreatureState struct {
	ID             uint64             `json:"id"`
	X              int                `json:"x"`
	Y              int                `json:"y"`
	Energy         float64            `json:"energy"`
	Age            int                `json:"age"`
	Generation     int                `json:"generation"`
	OffspringCount int                `json:"offspring_count"`
	FoodEaten      int                `json:"food_eaten"`
	Genes          map[string]float64 `json:"genes"`
	Brain          BrainState         `json:"brain"`
}

// BrainState records the Q-learning hyperparameters and table.
type BrainState struct {
	LearningRate    float64       `json:"learning_rate"`
	DiscountFactor  float64       `json:"discount_factor"`
	ExplorationRate float64       `json:"exploration_rate"`
	Policy          []PolicyEntry `json:"policy"`
}

// PolicyEntry is one Q-table row with its state spelled out, keeping
// saved policies readable and diffable.
type PolicyEntry struct {
	EnergyLevel    int                        `json:"energy_level"`
	FoodNearby     bool                       `json:"food_nearby"`
	PlantNearby    bool                       `json:"plant_nearby"`
	WallNearby     bool                       `json:"wall_nearby"`
	CreatureNearby bool                       `json:"creature_nearby"`
	CanReproduce   bool                       `json:"can_reproduce"`
	Values         [brain.ActionCount]float64 `json:"values"`
}

// Capture freezes the simulation into a writable snapshot. Call it
// between ticks; resources come out in grid order and creatures in
// list order, so captures of the same state are identical.
func Capture(s *sim.Simulation) *File {
	cfg := config.Cfg()
	w := s.World()
	f := &File{
		Version: Version,
		SavedAt: time.Now(),
		Seed:    s.Seed(),
		Tick:    s.Tick(),
		Config: ConfigState{
			WorldWidth:   cfg.World.Width,
			WorldHeight:  cfg.World.Height,
			MutationRate: cfg.Creature.MutationRate,
			MaxCreatures: cfg.Population.Max,
		},
		World: WorldState{Width: w.Width(), Height: w.Height()},
		Stats: *s.Stats(),
	}

	for _, r := range w.Resources() {
		f.Resources = append(f.Resources, ResourceState{
			Kind:        r.Kind.String(),
			X:           r.X,
			Y:           r.Y,
			EnergyValue: r.EnergyValue,
			Age:         r.Age,
			GrowthStage: r.GrowthStage,
			MaxGrowth:   r.MaxGrowth,
		})
	}
	for _, c := range w.Creatures() {
		f.Creatures = append(f.Creatures, captureCreature(c))
	}
	return f
}

func captureCreature(c *sim.Creature) CreatureState {
	genes := make(map[string]float64, len(c.Chromosome.Genes))
	for _, g := range c.Chromosome.Genes {
		genes[g.Name] = g.Value
	}

	exported := c.Brain.Export()
	policy := make([]PolicyEntry, 0, len(exported))
	for _, e := range exported {
		policy = append(policy, PolicyEntry{
			EnergyLevel:    e.State.EnergyLevel,
			FoodNearby:     e.State.FoodNearby,
			PlantNearby:    e.State.PlantNearby,
			WallNearby:     e.State.WallNearby,
			CreatureNearby: e.State.CreatureNearby,
			CanReproduce:   e.State.CanReproduce,
			Values:         e.Values,
		})
	}

	return CreatureState{
		ID:             c.ID,
		X:              c.X,
		Y:              c.Y,
		Energy:         c.Energy,
		Age:            c.Age,
		Generation:     c.Generation,
		OffspringCount: c.OffspringCount,
		FoodEaten:      c.FoodEaten,
		Genes:          genes,
		Brain: BrainState{
			LearningRate:    c.Brain.LearningRate,
			DiscountFactor:  c.Brain.DiscountFactor,
			ExplorationRate: c.Brain.ExplorationRate,
			Policy:          policy,
		},
	}
}

// Save writes the snapshot into dir under a timestamped name and
// returns the path written.
func Save(f *File, dir string) (string, error) {
	name := "sim_" + f.SavedAt.Format("20060102_150405") + ".json"
	path := filepath.Join(dir, name)
	if err := SaveAs(f, path); err != nil {
		return "", err
	}
	return path, nil
}

// SaveAs writes the snapshot to an explicit path, creating parent
// directories as needed, with a .summary.txt sidecar.
func SaveAs(f *File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating save dir: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	summary := fmt.Sprintf(
		"saved: %s\nseed: %d\ntick: %d\nworld: %dx%d\npopulation: %d (peak %d)\nbirths: %d\ndeaths: %d\nmax generation: %d\nresources: %d\n",
		f.SavedAt.Format(time.RFC3339), f.Seed, f.Tick,
		f.World.Width, f.World.Height,
		len(f.Creatures), f.Stats.PeakPopulation,
		f.Stats.TotalBirths, f.Stats.TotalDeaths,
		f.Stats.MaxGeneration, len(f.Resources),
	)
	sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + ".summary.txt"
	if err := os.WriteFile(sidecar, []byte(summary), 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// Load reads and validates a snapshot file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("snapshot version %d, this build reads %d", f.Version, Version)
	}
	return &f, nil
}

// Restore rebuilds a live world and statistics from a loaded snapshot.
// The world's id allocator is raised past every restored creature.
func Restore(f *File) (*sim.World, *telemetry.Statistics, error) {
	if f.World.Width <= 0 || f.World.Height <= 0 {
		return nil, nil, fmt.Errorf("snapshot world %dx%d invalid", f.World.Width, f.World.Height)
	}
	w := sim.NewEmptyWorld(f.World.Width, f.World.Height)

	for _, rs := range f.Resources {
		kind, err := kindByName(rs.Kind)
		if err != nil {
			return nil, nil, err
		}
		r := &sim.Resource{
			Kind:        kind,
			X:           rs.X,
			Y:           rs.Y,
			EnergyValue: rs.EnergyValue,
			Age:         rs.Age,
			GrowthStage: rs.GrowthStage,
			MaxGrowth:   rs.MaxGrowth,
		}
		if !w.RestoreResource(r) {
			return nil, nil, fmt.Errorf("resource at (%d,%d) does not fit the grid", rs.X, rs.Y)
		}
	}

	var maxID uint64
	for _, cs := range f.Creatures {
		entries := make([]brain.TableEntry, 0, len(cs.Brain.Policy))
		for _, p := range cs.Brain.Policy {
			entries = append(entries, brain.TableEntry{
				State: brain.State{
					EnergyLevel:    p.EnergyLevel,
					FoodNearby:     p.FoodNearby,
					PlantNearby:    p.PlantNearby,
					WallNearby:     p.WallNearby,
					CreatureNearby: p.CreatureNearby,
					CanReproduce:   p.CanReproduce,
				},
				Values: p.Values,
			})
		}
		br := brain.Restore(cs.Brain.LearningRate, cs.Brain.DiscountFactor, cs.Brain.ExplorationRate, entries)
		c := sim.NewCreatureWith(cs.ID, cs.X, cs.Y, genetics.RestoreChromosome(cs.Genes), br, cs.Energy)
		c.Age = cs.Age
		c.Generation = cs.Generation
		c.OffspringCount = cs.OffspringCount
		c.FoodEaten = cs.FoodEaten
		if !w.RestoreCreature(c) {
			return nil, nil, fmt.Errorf("creature %d does not fit at (%d,%d)", cs.ID, cs.X, cs.Y)
		}
		if cs.ID > maxID {
			maxID = cs.ID
		}
	}
	w.SetNextID(maxID + 1)

	return w, telemetry.RestoreStatistics(f.Stats), nil
}

func kindByName(name string) (sim.CellKind, error) {
	switch name {
	case "wall":
		return sim.CellWall, nil
	case "food":
		return sim.CellFood, nil
	case "plant":
		return sim.CellPlant, nil
	}
	return 0, fmt.Errorf("unknown resource kind %q", name)
}

// Info describes one snapshot on disk without decoding it.
type Info struct {
	Path     string
	Size     int64
	Modified time.Time
}

// List returns the snapshots under dir, newest first.
func List(dir string) ([]Info, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	infos := make([]Info, 0, len(matches))
	for _, path := range matches {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("listing snapshots: %w", err)
		}
		infos = append(infos, Info{Path: path, Size: fi.Size(), Modified: fi.ModTime()})
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].Modified.Equal(infos[j].Modified) {
			return infos[i].Modified.After(infos[j].Modified)
		}
		return infos[i].Path < infos[j].Path
	})
	return infos, nil
}
