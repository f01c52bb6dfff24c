package telemetry

import (
	"strings"
	"testing"

	"github.com/thelast2know/ancient-combat-simulator/events"
)

func TestExportEventsCSVHeaderAndRows(t *testing.T) {
	evs := []events.Event{
		{Kind: events.AgentCollision, Step: 1, Actor: 1, Target: 2, HasPos: true, Pos: events.Position{X: 5, Y: 6}},
		{Kind: events.ProjectileImpact, Step: 2, Actor: 3, HasPos: true, Pos: events.Position{X: 7, Y: 8}},
	}

	var buf strings.Builder
	if err := ExportEventsCSV(evs, &buf); err != nil {
		t.Fatalf("ExportEventsCSV: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (header + 2 rows)", len(lines))
	}
	if !strings.Contains(lines[0], "step") || !strings.Contains(lines[0], "kind") {
		t.Errorf("header = %q, want step/kind columns", lines[0])
	}
	if !strings.Contains(lines[1], "AGENT_COLLISION") {
		t.Errorf("row 1 = %q, want AGENT_COLLISION kind", lines[1])
	}
	if !strings.Contains(lines[2], "PROJECTILE_IMPACT") {
		t.Errorf("row 2 = %q, want PROJECTILE_IMPACT kind", lines[2])
	}
}

func TestExportEventsCSVEmpty(t *testing.T) {
	var buf strings.Builder
	if err := ExportEventsCSV(nil, &buf); err != nil {
		t.Fatalf("ExportEventsCSV: %v", err)
	}
}
