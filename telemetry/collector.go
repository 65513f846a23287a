package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/terrarium/brain"
)

// Row is one line of telemetry.csv, summarising the window of ticks
// since the previous flush.
type Row struct {
	Tick       int `csv:"tick"`
	Population int `csv:"population"`
	Births     int `csv:"births"`
	Starved    int `csv:"starved"`
	Evicted    int `csv:"evicted"`

	// Action counts across the window.
	MoveUp          int `csv:"move_up"`
	MoveDown        int `csv:"move_down"`
	MoveLeft        int `csv:"move_left"`
	MoveRight       int `csv:"move_right"`
	Eat             int `csv:"eat"`
	Reproduce       int `csv:"reproduce"`
	Photosynthesize int `csv:"photosynthesize"`
	Stay            int `csv:"stay"`

	// Energy distribution at flush time.
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	AvgGeneration float64 `csv:"avg_generation"`
	MaxGeneration int     `csv:"max_generation"`
	TPS           float64 `csv:"tps"`
}

// LogStats writes the row to the structured log.
func (r Row) LogStats() {
	slog.Info("telemetry",
		"tick", r.Tick,
		"population", r.Population,
		"births", r.Births,
		"starved", r.Starved,
		"evicted", r.Evicted,
		"energy_mean", r.EnergyMean,
		"max_generation", r.MaxGeneration,
		"tps", r.TPS,
	)
}

// Collector accumulates per-tick events between flushes.
type Collector struct {
	window int

	births      int
	starvations int
	evictions   int
	actions     [brain.ActionCount]int
}

// NewCollector returns a collector that flushes every window ticks.
// A window of zero or less falls back to 100.
func NewCollector(window int) *Collector {
	if window <= 0 {
		window = 100
	}
	return &Collector{window: window}
}

// Window returns the flush interval in ticks.
func (c *Collector) Window() int { return c.window }

// RecordAction counts one decided action.
func (c *Collector) RecordAction(a brain.Action) {
	if int(a) < brain.ActionCount {
		c.actions[a]++
	}
}

// RecordBirths adds n births to the current window.
func (c *Collector) RecordBirths(n int) { c.births += n }

// RecordStarvations adds n energy deaths to the current window.
func (c *Collector) RecordStarvations(n int) { c.starvations += n }

// RecordEvictions adds n cap evictions to the current window.
func (c *Collector) RecordEvictions(n int) { c.evictions += n }

// ShouldFlush reports whether the window ending at tick is complete.
func (c *Collector) ShouldFlush(tick int) bool {
	return tick > 0 && tick%c.window == 0
}

// Flush builds a row from the window counters and the current
// population, then resets the counters for the next window.
func (c *Collector) Flush(tick int, samples []CreatureSample) Row {
	row := Row{
		Tick:       tick,
		Population: len(samples),
		Births:     c.births,
		Starved:    c.starvations,
		Evicted:    c.evictions,

		MoveUp:          c.actions[brain.MoveUp],
		MoveDown:        c.actions[brain.MoveDown],
		MoveLeft:        c.actions[brain.MoveLeft],
		MoveRight:       c.actions[brain.MoveRight],
		Eat:             c.actions[brain.Eat],
		Reproduce:       c.actions[brain.Reproduce],
		Photosynthesize: c.actions[brain.Photosynthesize],
		Stay:            c.actions[brain.Stay],
	}

	if len(samples) > 0 {
		energy := make([]float64, len(samples))
		var gen float64
		maxGen := 0
		for i, s := range samples {
			energy[i] = s.Energy
			gen += float64(s.Generation)
			if s.Generation > maxGen {
				maxGen = s.Generation
			}
		}
		sort.Float64s(energy)
		row.EnergyMean = stat.Mean(energy, nil)
		row.EnergyP10 = stat.Quantile(0.10, stat.Empirical, energy, nil)
		row.EnergyP50 = stat.Quantile(0.50, stat.Empirical, energy, nil)
		row.EnergyP90 = stat.Quantile(0.90, stat.Empirical, energy, nil)
		row.AvgGeneration = gen / float64(len(samples))
		row.MaxGeneration = maxGen
	}

	c.births = 0
	c.starvations = 0
	c.evictions = 0
	c.actions = [brain.ActionCount]int{}
	return row
}
