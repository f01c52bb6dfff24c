package telemetry

import "testing"

func TestDiagnosticsCollectorEmptyWindow(t *testing.T) {
	c := NewDiagnosticsCollector(10)
	got := c.Sample()
	if got.PairsCheckedMean != 0 || got.SlackMean != 0 {
		t.Errorf("empty window sample = %+v, want all zeros", got)
	}
}

func TestDiagnosticsCollectorMeans(t *testing.T) {
	c := NewDiagnosticsCollector(10)
	for i := int64(0); i < 5; i++ {
		c.Record(StepSample{
			Step:           i,
			PairsChecked:   10,
			PairsColliding: int(i),
			CellsOccupied:  4,
		})
	}

	got := c.Sample()
	if got.PairsCheckedMean != 10 {
		t.Errorf("pairs checked mean = %v, want 10", got.PairsCheckedMean)
	}
	if got.PairsCollidingMean != 2 {
		t.Errorf("pairs colliding mean = %v, want 2 (0+1+2+3+4)/5", got.PairsCollidingMean)
	}
	if got.CellsOccupiedMean != 4 {
		t.Errorf("cells occupied mean = %v, want 4", got.CellsOccupiedMean)
	}
}

func TestDiagnosticsCollectorWindowEviction(t *testing.T) {
	c := NewDiagnosticsCollector(3)
	for i := int64(0); i < 5; i++ {
		c.Record(StepSample{Step: i, PairsChecked: int(i)})
	}

	got := c.Sample()
	if got.WindowStartStep != 2 || got.WindowEndStep != 4 {
		t.Errorf("window = [%d, %d], want [2, 4] after evicting older samples", got.WindowStartStep, got.WindowEndStep)
	}
	// Mean of {2, 3, 4} is 3.
	if got.PairsCheckedMean != 3 {
		t.Errorf("pairs checked mean = %v, want 3", got.PairsCheckedMean)
	}
}

func TestDiagnosticsCollectorSlackQuantiles(t *testing.T) {
	c := NewDiagnosticsCollector(10)
	c.Record(StepSample{Step: 0, Slacks: []float32{0.0, 0.1, 0.2, 0.3, 0.4}})

	got := c.Sample()
	if got.SlackMean <= 0 {
		t.Errorf("slack mean = %v, want > 0", got.SlackMean)
	}
	if got.SlackP90 < got.SlackP50 {
		t.Errorf("slack p90 (%v) < slack p50 (%v)", got.SlackP90, got.SlackP50)
	}
}
