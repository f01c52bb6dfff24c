// Package collision implements the narrow-phase pair routine and the
// naive/grid pair-source dispatch from spec.md §4.4: symmetric elastic
// response along the collision normal with exact overlap correction.
package collision

import (
	"math"

	"github.com/thelast2know/ancient-combat-simulator/events"
	"github.com/thelast2know/ancient-combat-simulator/spatial"
)

// Agent is the minimal mutable view the resolver needs. Callers (the
// world package) adapt their ECS component pointers to this shape.
type Agent struct {
	ID     uint64
	X, Y   float32
	VX, VY float32
}

// Stats reports per-step diagnostics. They must not influence state
// transitions (spec.md §4.2).
type Stats struct {
	PairsChecked   int
	PairsColliding int

	// Slacks holds, for each colliding pair, the residual deviation of the
	// post-correction separation from exactly agentRadius*2, in meters.
	// Exact arithmetic would make every entry 0; float32 rounding leaves a
	// small nonzero value, which telemetry windows to catch drift.
	Slacks []float32
}

// Resolve enumerates candidate pairs among live agents (naive below or at
// crossover, grid-based above it, per spec.md §4.4) and applies the
// narrow-phase routine to each. grid must already have been rebuilt with
// the same agents by the caller. Collision events are appended to buf.
func Resolve(agents []*Agent, grid *spatial.UniformGrid, agentRadius float32, crossover int, step int64, buf *events.Buffer) Stats {
	var stats Stats

	if len(agents) <= crossover {
		for i := 0; i < len(agents); i++ {
			for j := i + 1; j < len(agents); j++ {
				if slack, collided := resolvePair(agents[i], agents[j], agentRadius, step, buf); collided {
					stats.PairsColliding++
					stats.Slacks = append(stats.Slacks, slack)
				}
				stats.PairsChecked++
			}
		}
		return stats
	}

	byID := make(map[uint64]*Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}

	pairs := grid.UnorderedNeighborPairs(nil)
	for _, pr := range pairs {
		a, okA := byID[pr[0]]
		b, okB := byID[pr[1]]
		if !okA || !okB {
			continue
		}
		if slack, collided := resolvePair(a, b, agentRadius, step, buf); collided {
			stats.PairsColliding++
			stats.Slacks = append(stats.Slacks, slack)
		}
		stats.PairsChecked++
	}
	return stats
}

// resolvePair applies the narrow-phase distance test, elastic response
// and overlap correction of spec.md §4.4 to a single pair, returning the
// post-correction separation slack and true if the pair was actually
// colliding (d^2 < r_sum^2).
func resolvePair(a, b *Agent, agentRadius float32, step int64, buf *events.Buffer) (float32, bool) {
	rSum := 2 * agentRadius
	rSumSq := rSum * rSum

	dx := b.X - a.X
	dy := b.Y - a.Y
	distSq := dx*dx + dy*dy
	if distSq >= rSumSq {
		return 0, false
	}

	// trueDist is the real pre-guard separation; the degenerate branch
	// below fakes dx,dy to get a deterministic normal but must not fake
	// this, or the overlap correction collapses to zero and the agents
	// are left exactly overlapping.
	trueDist := float32(math.Sqrt(float64(distSq)))

	var dist float32
	if distSq == 0 {
		// Deterministic tie-break for exact overlap (spec.md §7): offset
		// b by (r_sum, 0) rather than picking an arbitrary direction.
		dx, dy = rSum, 0
		dist = rSum
	} else {
		dist = trueDist
	}

	nx, ny := dx/dist, dy/dist

	overlap := rSum - trueDist
	a.X -= overlap / 2 * nx
	a.Y -= overlap / 2 * ny
	b.X += overlap / 2 * nx
	b.Y += overlap / 2 * ny

	relVX, relVY := b.VX-a.VX, b.VY-a.VY
	vn := relVX*nx + relVY*ny
	if vn < 0 {
		a.VX += vn * nx
		a.VY += vn * ny
		b.VX -= vn * nx
		b.VY -= vn * ny
	}

	buf.Emit(events.Event{
		Kind:   events.AgentCollision,
		Step:   step,
		Actor:  a.ID,
		Target: b.ID,
		HasPos: true,
		Pos:    events.Position{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
	})

	postDX, postDY := b.X-a.X, b.Y-a.Y
	postDist := float32(math.Sqrt(float64(postDX*postDX + postDY*postDY)))
	slack := postDist - rSum
	if slack < 0 {
		slack = -slack
	}
	return slack, true
}
