package telemetry

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/thelast2know/ancient-combat-simulator/events"
)

// eventRecord is the flat, CSV-friendly projection of events.Event that
// gocsv marshals via its `csv` struct tags, the same pattern the teacher's
// WindowStats/PerfStatsCSV use.
type eventRecord struct {
	Step     int64   `csv:"step"`
	Kind     string  `csv:"kind"`
	Actor    uint64  `csv:"actor"`
	Target   uint64  `csv:"target"`
	HasPos   bool    `csv:"has_pos"`
	X        float32 `csv:"x"`
	Y        float32 `csv:"y"`
	Z        float32 `csv:"z"`
	HasValue bool    `csv:"has_value"`
	Value    float64 `csv:"value"`
}

// ExportEventsCSV writes a drained event slice to w in CSV form. Callers
// drive this explicitly from their own diagnostics loop; World.Step and
// World.Reset never call it, keeping the core free of file I/O (spec.md
// §5).
func ExportEventsCSV(evs []events.Event, w io.Writer) error {
	records := make([]eventRecord, len(evs))
	for i, ev := range evs {
		records[i] = eventRecord{
			Step:     ev.Step,
			Kind:     ev.Kind.String(),
			Actor:    ev.Actor,
			Target:   ev.Target,
			HasPos:   ev.HasPos,
			X:        ev.Pos.X,
			Y:        ev.Pos.Y,
			Z:        ev.Pos.Z,
			HasValue: ev.HasValue,
			Value:    ev.Value,
		}
	}
	if err := gocsv.Marshal(records, w); err != nil {
		return fmt.Errorf("exporting events csv: %w", err)
	}
	return nil
}
