// Package params defines the immutable configuration bundle for a
// simulation instance (spec.md §4.1) and its YAML-based loader.
package params

import (
	"fmt"
)

// Parameters is the immutable, validated configuration for one World.
// Zero value is not valid; construct via Load, Default, or Document.Build.
type Parameters struct {
	arenaWidth, arenaHeight float64
	dt                      float64
	gravity                 float64
	agentRadius             float64
	gridCellSize            float64
	naiveGridCrossover      int
	restitution             float64
}

// ArenaWidth returns the arena width in meters.
func (p Parameters) ArenaWidth() float64 { return p.arenaWidth }

// ArenaHeight returns the arena height in meters.
func (p Parameters) ArenaHeight() float64 { return p.arenaHeight }

// DT returns the fixed timestep in seconds.
func (p Parameters) DT() float64 { return p.dt }

// Gravity returns the gravitational acceleration in m/s^2.
func (p Parameters) Gravity() float64 { return p.gravity }

// AgentRadius returns the collision radius shared by all agents, in meters.
func (p Parameters) AgentRadius() float64 { return p.agentRadius }

// GridCellSize returns the spatial index cell size in meters.
func (p Parameters) GridCellSize() float64 { return p.gridCellSize }

// NaiveGridCrossover returns the live-agent-count threshold above which
// the collision resolver switches from naive to grid-based pair selection.
func (p Parameters) NaiveGridCrossover() int { return p.naiveGridCrossover }

// Restitution returns the coefficient of restitution used for agent-agent
// collisions. Only 1.0 (perfectly elastic) is supported in this core.
func (p Parameters) Restitution() float64 { return p.restitution }

// Default returns the reference configuration from spec.md §4.2: a 100x100
// arena, 0.1s timestep, 9.81 m/s^2 gravity, 0.3m agent radius and 1.0m grid
// cells.
func Default() Parameters {
	p, err := Document{
		Arena:     ArenaConfig{Width: 100.0, Height: 100.0},
		Physics:   PhysicsConfig{DT: 0.1, Gravity: 9.81},
		Agent:     AgentConfig{Radius: 0.3},
		Collision: CollisionConfig{GridCellSize: 1.0, NaiveGridCrossover: 150, Restitution: 1.0},
	}.Build()
	if err != nil {
		panic(fmt.Sprintf("params: reference defaults are invalid: %v", err))
	}
	return p
}

// Validate checks the construction invariants from spec.md §4.1 and §7:
// all lengths positive, dt > 0, radius > 0, cell size > 0 and at most the
// smaller arena dimension, cell size at least 2*radius (spec.md §4.2's
// correctness lower bound), and a supported restitution.
func (d Document) Validate() error {
	switch {
	case d.Arena.Width <= 0:
		return fmt.Errorf("arena width must be positive, got %g", d.Arena.Width)
	case d.Arena.Height <= 0:
		return fmt.Errorf("arena height must be positive, got %g", d.Arena.Height)
	case d.Physics.DT <= 0:
		return fmt.Errorf("dt must be positive, got %g", d.Physics.DT)
	case d.Agent.Radius <= 0:
		return fmt.Errorf("agent radius must be positive, got %g", d.Agent.Radius)
	case d.Collision.GridCellSize <= 0:
		return fmt.Errorf("grid cell size must be positive, got %g", d.Collision.GridCellSize)
	}
	minDim := d.Arena.Width
	if d.Arena.Height < minDim {
		minDim = d.Arena.Height
	}
	if d.Collision.GridCellSize > minDim {
		return fmt.Errorf("grid cell size %g exceeds smaller arena dimension %g", d.Collision.GridCellSize, minDim)
	}
	if d.Collision.GridCellSize < 2*d.Agent.Radius {
		return fmt.Errorf("grid cell size %g is below 2*radius (%g): colliding pairs could escape the 3x3 stencil", d.Collision.GridCellSize, 2*d.Agent.Radius)
	}
	if d.Collision.NaiveGridCrossover < 0 {
		return fmt.Errorf("naive/grid crossover must be non-negative, got %d", d.Collision.NaiveGridCrossover)
	}
	if d.Collision.Restitution != 1.0 {
		return fmt.Errorf("restitution %g is unsupported: this core only implements the elastic (1.0) case", d.Collision.Restitution)
	}
	return nil
}

// Build validates the document and returns the resulting immutable
// Parameters.
func (d Document) Build() (Parameters, error) {
	if err := d.Validate(); err != nil {
		return Parameters{}, err
	}
	return Parameters{
		arenaWidth:         d.Arena.Width,
		arenaHeight:        d.Arena.Height,
		dt:                 d.Physics.DT,
		gravity:            d.Physics.Gravity,
		agentRadius:        d.Agent.Radius,
		gridCellSize:       d.Collision.GridCellSize,
		naiveGridCrossover: d.Collision.NaiveGridCrossover,
		restitution:        d.Collision.Restitution,
	}, nil
}

// toDocument renders Parameters back into its serializable form, used by
// Encode for round-tripping.
func (p Parameters) toDocument() Document {
	return Document{
		Arena:     ArenaConfig{Width: p.arenaWidth, Height: p.arenaHeight},
		Physics:   PhysicsConfig{DT: p.dt, Gravity: p.gravity},
		Agent:     AgentConfig{Radius: p.agentRadius},
		Collision: CollisionConfig{GridCellSize: p.gridCellSize, NaiveGridCrossover: p.naiveGridCrossover, Restitution: p.restitution},
	}
}
