// Package kinematics implements the per-agent heading slew,
// acceleration-limited velocity update, Euler position update and arena
// clamp from spec.md §4.3.
package kinematics

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/thelast2know/ancient-combat-simulator/components"
)

// headingThreshold is the desired-velocity magnitude below which the
// desired heading is retained rather than recomputed (spec.md §4.3 step 1).
const headingThreshold = 1e-4

// System advances every live agent's heading, velocity and position, then
// clamps the result to the arena.
type System struct {
	filter                  ecs.Filter7[components.Position, components.Velocity, components.Rotation, components.Body, components.Control, components.Attributes, components.Liveness]
	arenaWidth, arenaHeight float32
}

// NewSystem builds a kinematics system bound to an arena of the given
// extent.
func NewSystem(w *ecs.World, arenaWidth, arenaHeight float32) *System {
	return &System{
		filter: *ecs.NewFilter7[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Control,
			components.Attributes,
			components.Liveness,
		](w),
		arenaWidth:  arenaWidth,
		arenaHeight: arenaHeight,
	}
}

// Update runs the full per-agent kinematics pass for one tick of length
// dt seconds, skipping dead agents entirely.
func (s *System) Update(dt float32) {
	query := s.filter.Query()
	for query.Next() {
		pos, vel, rot, body, ctrl, attrs, live := query.Get()
		if !live.Alive {
			continue
		}
		slewHeading(rot, ctrl, attrs.Agility, dt)
		updateVelocity(vel, ctrl, attrs, dt)
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
		ClampToArena(pos, vel, body.Radius, s.arenaWidth, s.arenaHeight)
	}
}

// slewHeading rotates rot toward the heading implied by ctrl's desired
// velocity (or the previously retained desired heading, if the desired
// velocity is too small to imply a direction) by at most agility*dt,
// wrapped to (-pi, pi].
func slewHeading(rot *components.Rotation, ctrl *components.Control, agility, dt float32) {
	magSq := ctrl.DesiredVX*ctrl.DesiredVX + ctrl.DesiredVY*ctrl.DesiredVY
	if magSq > headingThreshold*headingThreshold {
		ctrl.DesiredHeading = float32(math.Atan2(float64(ctrl.DesiredVY), float64(ctrl.DesiredVX)))
	}

	diff := wrapAngle(ctrl.DesiredHeading - rot.Heading)
	maxStep := agility * dt
	if diff > maxStep {
		diff = maxStep
	} else if diff < -maxStep {
		diff = -maxStep
	}
	rot.Heading = wrapAngle(rot.Heading + diff)
}

// wrapAngle wraps a into (-pi, pi].
func wrapAngle(a float32) float32 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// updateVelocity accelerates vel toward the desired velocity by at most
// acceleration*dt per component, then clamps the resulting speed to
// max_speed by scaling both components uniformly.
func updateVelocity(vel *components.Velocity, ctrl *components.Control, attrs *components.Attributes, dt float32) {
	maxDelta := attrs.Acceleration * dt
	vel.X = stepToward(vel.X, ctrl.DesiredVX, maxDelta)
	vel.Y = stepToward(vel.Y, ctrl.DesiredVY, maxDelta)

	speed := float32(math.Sqrt(float64(vel.X*vel.X + vel.Y*vel.Y)))
	if speed > attrs.MaxSpeed && speed > 0 {
		scale := attrs.MaxSpeed / speed
		vel.X *= scale
		vel.Y *= scale
	}
}

// stepToward moves current toward target by at most maxDelta.
func stepToward(current, target, maxDelta float32) float32 {
	delta := target - current
	if delta > maxDelta {
		delta = maxDelta
	} else if delta < -maxDelta {
		delta = -maxDelta
	}
	return current + delta
}

// ClampToArena clamps pos into [radius, width-radius] x [radius,
// height-radius], zeroing the velocity component on whichever axis was
// clamped (spec.md §4.3 step 4). Exported so the world package can
// re-apply it after collision overlap correction, per spec.md §4.4's
// invariant note.
func ClampToArena(pos *components.Position, vel *components.Velocity, radius, width, height float32) {
	if pos.X < radius {
		pos.X = radius
		vel.X = 0
	} else if pos.X > width-radius {
		pos.X = width - radius
		vel.X = 0
	}
	if pos.Y < radius {
		pos.Y = radius
		vel.Y = 0
	} else if pos.Y > height-radius {
		pos.Y = height - radius
		vel.Y = 0
	}
}
