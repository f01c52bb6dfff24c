package world

import (
	"testing"

	"github.com/thelast2know/ancient-combat-simulator/components"
	"github.com/thelast2know/ancient-combat-simulator/telemetry"
)

func TestAttachedDiagnosticsCollectorRecordsSteps(t *testing.T) {
	w := newTestWorld(t, 20)
	diag := telemetry.NewDiagnosticsCollector(5)
	w.AttachDiagnostics(diag)

	a := w.AddAgent(AgentSpec{X: 40, Y: 50, Attributes: components.DefaultAttributes()})
	b := w.AddAgent(AgentSpec{X: 40.2, Y: 50, Attributes: components.DefaultAttributes()})

	for i := 0; i < 3; i++ {
		if err := w.Step(map[uint64]Action{a: {}, b: {}}); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	sample := diag.Sample()
	if sample.WindowEndStep != w.StepCount()-1 {
		t.Errorf("window end step = %d, want %d", sample.WindowEndStep, w.StepCount()-1)
	}
}

func TestAttachedPerfCollectorRecordsSteps(t *testing.T) {
	w := newTestWorld(t, 21)
	perf := telemetry.NewPerfCollector(5)
	w.AttachPerfCollector(perf)

	id := w.AddAgent(AgentSpec{X: 5, Y: 5, Attributes: components.DefaultAttributes()})
	for i := 0; i < 3; i++ {
		if err := w.Step(map[uint64]Action{id: {DesiredVX: 1}}); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	stats := perf.Stats()
	if stats.AvgStepDuration <= 0 {
		t.Errorf("avg step duration = %v, want > 0", stats.AvgStepDuration)
	}
	if _, ok := stats.PhaseAvg[telemetry.PhaseCollisions]; !ok {
		t.Error("expected a collisions phase entry from the attached collector")
	}
}

func TestTrajectoryLoggingDisabledByDefault(t *testing.T) {
	w := newTestWorld(t, 23)
	launcher := w.AddAgent(AgentSpec{X: 50, Y: 50, Attributes: components.DefaultAttributes()})
	if _, err := w.LaunchProjectile(launcher, 0, 0.5, 15); err != nil {
		t.Fatalf("LaunchProjectile: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := w.Step(nil); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if len(w.projectiles[0].Trajectory) != 0 {
		t.Errorf("Trajectory = %v, want empty when logging is disabled", w.projectiles[0].Trajectory)
	}
}

func TestTrajectoryLoggingRecordsSamplesWhenEnabled(t *testing.T) {
	w := newTestWorld(t, 24)
	w.SetTrajectoryLogging(true)
	launcher := w.AddAgent(AgentSpec{X: 50, Y: 50, Attributes: components.DefaultAttributes()})
	if _, err := w.LaunchProjectile(launcher, 0, 0.5, 15); err != nil {
		t.Fatalf("LaunchProjectile: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := w.Step(nil); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if len(w.projectiles[0].Trajectory) == 0 {
		t.Error("Trajectory is empty, want recorded samples when logging is enabled")
	}
}

func TestUnattachedTelemetryIsNoOp(t *testing.T) {
	w := newTestWorld(t, 22)
	id := w.AddAgent(AgentSpec{X: 5, Y: 5, Attributes: components.DefaultAttributes()})
	if err := w.Step(map[uint64]Action{id: {DesiredVX: 1}}); err != nil {
		t.Fatalf("step: %v", err)
	}
}
