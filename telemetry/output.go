package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/terrarium/config"
)

// OutputManager owns a run's output directory. A nil manager is valid
// and drops every write, so callers never need to guard.
type OutputManager struct {
	dir string

	telemetry     *os.File
	headerWritten bool
}

// NewOutputManager creates dir if needed and returns a manager rooted
// there.
func NewOutputManager(dir string) (*OutputManager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return &OutputManager{dir: dir}, nil
}

// Dir returns the output directory, or "" on a nil manager.
func (o *OutputManager) Dir() string {
	if o == nil {
		return ""
	}
	return o.dir
}

// WriteTelemetry appends one row to telemetry.csv. The header is
// written on the first call only.
func (o *OutputManager) WriteTelemetry(row Row) error {
	if o == nil {
		return nil
	}
	if o.telemetry == nil {
		f, err := os.Create(filepath.Join(o.dir, "telemetry.csv"))
		if err != nil {
			return fmt.Errorf("creating telemetry.csv: %w", err)
		}
		o.telemetry = f
	}
	rows := []Row{row}
	if !o.headerWritten {
		if err := gocsv.Marshal(rows, o.telemetry); err != nil {
			return fmt.Errorf("writing telemetry header: %w", err)
		}
		o.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, o.telemetry); err != nil {
		return fmt.Errorf("writing telemetry row: %w", err)
	}
	return nil
}

// WriteConfig records the effective config next to the data so a run
// can be reproduced later.
func (o *OutputManager) WriteConfig(cfg *config.Config) error {
	if o == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(o.dir, "config.yaml"))
}

// Close closes any open files. Safe on nil.
func (o *OutputManager) Close() error {
	if o == nil || o.telemetry == nil {
		return nil
	}
	err := o.telemetry.Close()
	o.telemetry = nil
	return err
}
