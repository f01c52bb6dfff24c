package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollectorEmptyWindow(t *testing.T) {
	p := NewPerfCollector(5)
	stats := p.Stats()
	if stats.StepsPerSecond != 0 {
		t.Errorf("steps per second = %v, want 0 with no samples", stats.StepsPerSecond)
	}
}

func TestPerfCollectorTracksPhases(t *testing.T) {
	p := NewPerfCollector(5)

	p.StartStep()
	p.StartPhase(PhaseKinematics)
	time.Sleep(time.Millisecond)
	p.StartPhase(PhaseCollisions)
	time.Sleep(time.Millisecond)
	p.EndStep()

	stats := p.Stats()
	if stats.AvgStepDuration <= 0 {
		t.Fatalf("avg step duration = %v, want > 0", stats.AvgStepDuration)
	}
	if _, ok := stats.PhaseAvg[PhaseKinematics]; !ok {
		t.Error("expected a kinematics phase entry")
	}
	if _, ok := stats.PhaseAvg[PhaseCollisions]; !ok {
		t.Error("expected a collisions phase entry")
	}
	total := stats.PhasePct[PhaseKinematics] + stats.PhasePct[PhaseCollisions]
	if total < 90 || total > 110 {
		t.Errorf("phase percentages sum to %v, want close to 100", total)
	}
}

func TestPerfCollectorWindowSize(t *testing.T) {
	p := NewPerfCollector(2)
	for i := 0; i < 5; i++ {
		p.StartStep()
		p.StartPhase(PhaseActions)
		p.EndStep()
	}
	if p.sampleCount != 2 {
		t.Errorf("sample count = %d, want 2 (window size)", p.sampleCount)
	}
}
