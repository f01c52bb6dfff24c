// Package telemetry implements the optional diagnostics and performance
// instrumentation layer: windowed statistics over per-step collision
// counters, phase timing, and CSV export of drained events. Nothing here
// participates in a state transition; every function is read-only with
// respect to the world it observes.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StepSample is one step's worth of raw collision diagnostics, as reported
// by collision.Stats plus the spatial grid's occupancy.
type StepSample struct {
	Step           int64
	PairsChecked   int
	PairsColliding int
	CellsOccupied  int
	Slacks         []float32
}

// DiagnosticsSample aggregates StepSamples collected over a rolling
// window into mean/quantile statistics, replacing the hand-rolled
// percentile arithmetic a prior lineage of this code used with
// gonum.org/v1/gonum/stat.
type DiagnosticsSample struct {
	WindowStartStep int64
	WindowEndStep   int64

	PairsCheckedMean   float64
	PairsCollidingMean float64
	CellsOccupiedMean  float64

	SlackMean float64
	SlackP50  float64
	SlackP90  float64
}

// DiagnosticsCollector accumulates StepSamples over a bounded window and
// produces a DiagnosticsSample on demand.
type DiagnosticsCollector struct {
	windowSize int
	samples    []StepSample
}

// NewDiagnosticsCollector creates a collector retaining up to windowSize
// most recent samples. A non-positive windowSize defaults to 60.
func NewDiagnosticsCollector(windowSize int) *DiagnosticsCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &DiagnosticsCollector{windowSize: windowSize}
}

// Record appends a sample, dropping the oldest once the window is full.
func (c *DiagnosticsCollector) Record(s StepSample) {
	c.samples = append(c.samples, s)
	if len(c.samples) > c.windowSize {
		c.samples = c.samples[len(c.samples)-c.windowSize:]
	}
}

// Sample computes the current window's aggregated statistics. It returns
// the zero value if no samples have been recorded.
func (c *DiagnosticsCollector) Sample() DiagnosticsSample {
	if len(c.samples) == 0 {
		return DiagnosticsSample{}
	}

	pairsChecked := make([]float64, len(c.samples))
	pairsColliding := make([]float64, len(c.samples))
	cellsOccupied := make([]float64, len(c.samples))
	var slacks []float64
	for i, s := range c.samples {
		pairsChecked[i] = float64(s.PairsChecked)
		pairsColliding[i] = float64(s.PairsColliding)
		cellsOccupied[i] = float64(s.CellsOccupied)
		for _, sl := range s.Slacks {
			slacks = append(slacks, float64(sl))
		}
	}

	out := DiagnosticsSample{
		WindowStartStep:    c.samples[0].Step,
		WindowEndStep:      c.samples[len(c.samples)-1].Step,
		PairsCheckedMean:   stat.Mean(pairsChecked, nil),
		PairsCollidingMean: stat.Mean(pairsColliding, nil),
		CellsOccupiedMean:  stat.Mean(cellsOccupied, nil),
	}

	if len(slacks) > 0 {
		sorted := append([]float64(nil), slacks...)
		sort.Float64s(sorted)
		out.SlackMean = stat.Mean(sorted, nil)
		out.SlackP50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
		out.SlackP90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	}

	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s DiagnosticsSample) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartStep),
		slog.Int64("window_end", s.WindowEndStep),
		slog.Float64("pairs_checked_mean", s.PairsCheckedMean),
		slog.Float64("pairs_colliding_mean", s.PairsCollidingMean),
		slog.Float64("cells_occupied_mean", s.CellsOccupiedMean),
		slog.Float64("slack_mean", s.SlackMean),
		slog.Float64("slack_p50", s.SlackP50),
		slog.Float64("slack_p90", s.SlackP90),
	)
}
