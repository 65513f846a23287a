// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Creature   CreatureConfig   `yaml:"creature"`
	Population PopulationConfig `yaml:"population"`
	Brain      BrainConfig      `yaml:"brain"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Save       SaveConfig       `yaml:"save"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds grid dimensions and resource dynamics.
type WorldConfig struct {
	Width             int     `yaml:"width"`
	Height            int     `yaml:"height"`
	InitialFood       int     `yaml:"initial_food"`
	InitialPlants     int     `yaml:"initial_plants"`
	FoodRespawnRate   float64 `yaml:"food_respawn_rate"` // Chance per tick of one food respawn attempt
	PlantGrowthRate   float64 `yaml:"plant_growth_rate"` // Chance per tick of one plant respawn attempt
	SunlightIntensity float64 `yaml:"sunlight_intensity"`
}

// CreatureConfig holds per-creature energy economics.
type CreatureConfig struct {
	MaxEnergy        float64 `yaml:"max_energy"`
	EnergyDecay      float64 `yaml:"energy_decay"`      // Base drain per tick, scaled by metabolism and size
	MovementCost     float64 `yaml:"movement_cost"`     // Reward penalty per size unit on a successful move
	ReproductionCost float64 `yaml:"reproduction_cost"` // Energy the parent pays on a successful birth
	MutationRate     float64 `yaml:"mutation_rate"`
}

// PopulationConfig holds population management parameters.
type PopulationConfig struct {
	Initial int `yaml:"initial"`
	Max     int `yaml:"max"`
}

// BrainConfig holds Q-learning hyperparameters.
type BrainConfig struct {
	LearningRate    float64 `yaml:"learning_rate"`
	DiscountFactor  float64 `yaml:"discount_factor"`
	ExplorationRate float64 `yaml:"exploration_rate"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // Ticks between telemetry flushes
}

// SaveConfig holds snapshot persistence parameters.
type SaveConfig struct {
	Directory        string `yaml:"directory"`
	AutosaveInterval int    `yaml:"autosave_interval"` // Ticks between autosaves (0 disables)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	InitialEnergy float64 // Starting energy for seeded creatures
	CellCount     int     // World.Width * World.Height
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	// Unset dimensions fall back to a standard square world
	if c.World.Width == 0 {
		c.World.Width = 100
	}
	if c.World.Height == 0 {
		c.World.Height = 100
	}
	if c.Population.Max == 0 {
		c.Population.Max = 100
	}
	c.Derived.InitialEnergy = c.Creature.MaxEnergy * 0.5
	c.Derived.CellCount = c.World.Width * c.World.Height
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
