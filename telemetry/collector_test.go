package telemetry

import (
	"testing"

	"github.com/pthm-cable/terrarium/brain"
)

func TestNewCollectorWindow(t *testing.T) {
	if w := NewCollector(0).Window(); w != 100 {
		t.Errorf("Window() = %d, want fallback 100", w)
	}
	if w := NewCollector(250).Window(); w != 250 {
		t.Errorf("Window() = %d, want 250", w)
	}
}

func TestShouldFlush(t *testing.T) {
	c := NewCollector(50)
	tests := []struct {
		tick int
		want bool
	}{
		{0, false},
		{1, false},
		{49, false},
		{50, true},
		{51, false},
		{100, true},
	}
	for _, tt := range tests {
		if got := c.ShouldFlush(tt.tick); got != tt.want {
			t.Errorf("ShouldFlush(%d) = %v, want %v", tt.tick, got, tt.want)
		}
	}
}

func TestFlushActionCounts(t *testing.T) {
	c := NewCollector(10)
	c.RecordAction(brain.Eat)
	c.RecordAction(brain.Eat)
	c.RecordAction(brain.MoveUp)
	c.RecordAction(brain.Stay)
	c.RecordBirths(2)
	c.RecordStarvations(1)
	c.RecordEvictions(3)

	row := c.Flush(10, nil)
	if row.Eat != 2 || row.MoveUp != 1 || row.Stay != 1 {
		t.Errorf("action counts = eat %d, move_up %d, stay %d", row.Eat, row.MoveUp, row.Stay)
	}
	if row.MoveDown != 0 || row.Reproduce != 0 || row.Photosynthesize != 0 {
		t.Errorf("untouched actions should be zero: %+v", row)
	}
	if row.Births != 2 || row.Starved != 1 || row.Evicted != 3 {
		t.Errorf("event counts = births %d, starved %d, evicted %d", row.Births, row.Starved, row.Evicted)
	}

	// Counters reset for the next window.
	next := c.Flush(20, nil)
	if next.Eat != 0 || next.Births != 0 || next.Starved != 0 || next.Evicted != 0 {
		t.Errorf("counters survived flush: %+v", next)
	}
}

func TestFlushEnergyDistribution(t *testing.T) {
	c := NewCollector(10)
	samples := make([]CreatureSample, 10)
	for i := range samples {
		samples[i] = CreatureSample{Energy: float64((i + 1) * 10), Generation: i % 3}
	}

	row := c.Flush(10, samples)
	if row.Population != 10 {
		t.Errorf("Population = %d, want 10", row.Population)
	}
	if !almostEqual(row.EnergyMean, 55) {
		t.Errorf("EnergyMean = %v, want 55", row.EnergyMean)
	}
	if !almostEqual(row.EnergyP10, 10) || !almostEqual(row.EnergyP50, 50) || !almostEqual(row.EnergyP90, 90) {
		t.Errorf("percentiles = %v, %v, %v, want 10, 50, 90", row.EnergyP10, row.EnergyP50, row.EnergyP90)
	}
	if row.MaxGeneration != 2 {
		t.Errorf("MaxGeneration = %d, want 2", row.MaxGeneration)
	}
}

func TestFlushEmptyPopulation(t *testing.T) {
	row := NewCollector(10).Flush(10, nil)
	if row.EnergyMean != 0 || row.EnergyP50 != 0 || row.AvgGeneration != 0 {
		t.Errorf("empty flush should zero distribution fields: %+v", row)
	}
}
