// Package world implements the orchestrator from spec.md §4.6: it owns
// the ECS world, the spatial index, the RNG stream and the event buffer,
// and drives the fixed phase order (actions, kinematics, index rebuild,
// collisions, projectiles) each step.
package world

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/mlange-42/ark/ecs"

	"github.com/thelast2know/ancient-combat-simulator/collision"
	"github.com/thelast2know/ancient-combat-simulator/components"
	"github.com/thelast2know/ancient-combat-simulator/events"
	"github.com/thelast2know/ancient-combat-simulator/kinematics"
	"github.com/thelast2know/ancient-combat-simulator/params"
	"github.com/thelast2know/ancient-combat-simulator/projectile"
	"github.com/thelast2know/ancient-combat-simulator/simrng"
	"github.com/thelast2know/ancient-combat-simulator/spatial"
	"github.com/thelast2know/ancient-combat-simulator/telemetry"
)

// AgentSpec describes a new agent to AddAgent.
type AgentSpec struct {
	Team       uint8
	X, Y       float32
	Heading    float32
	Attributes components.Attributes
}

// InfantryBlockSpec describes a new static rectangular formation.
type InfantryBlockSpec struct {
	Team                   uint8
	MinX, MinY, MaxX, MaxY float32
}

// InfantryBlock is a persisted static formation. Blocks are plain data,
// not ECS entities: their population is small and their shape never
// varies, so nothing benefits from an archetype query (spec.md §7
// supplemented feature: geometry queries below).
type InfantryBlock struct {
	ID   uint64
	Team uint8
	MinX, MinY, MaxX, MaxY float32
}

// Contains reports whether (x, y) lies within the block's rectangle.
func (b InfantryBlock) Contains(x, y float32) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// DistanceToBoundary returns the shortest distance from (x, y) to the
// block's nearest edge; zero if the point is inside or on the boundary.
func (b InfantryBlock) DistanceToBoundary(x, y float32) float32 {
	dx := float32(0)
	if x < b.MinX {
		dx = b.MinX - x
	} else if x > b.MaxX {
		dx = x - b.MaxX
	}
	dy := float32(0)
	if y < b.MinY {
		dy = b.MinY - y
	} else if y > b.MaxY {
		dy = y - b.MaxY
	}
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

// Action is a single agent's desired-velocity input for one step.
type Action struct {
	DesiredVX, DesiredVY float32
}

type agentRecord struct {
	entity ecs.Entity
	team   uint8
}

// World is a single deterministic simulation instance. It is not safe for
// concurrent use; independent worlds may be stepped in parallel by
// separate goroutines or processes (spec.md §5).
type World struct {
	params params.Parameters
	rng    *simrng.Stream

	ecsWorld *ecs.World
	mapper   *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Control,
		components.Attributes,
		components.Liveness,
	]
	kinematicsSys *kinematics.System

	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	rotMap  *ecs.Map1[components.Rotation]
	liveMap *ecs.Map1[components.Liveness]
	ctrlMap *ecs.Map1[components.Control]
	attrMap *ecs.Map1[components.Attributes]

	grid *spatial.UniformGrid
	buf  events.Buffer

	agents      map[uint64]agentRecord
	agentIDs    []uint64 // kept sorted ascending
	nextAgentID uint64

	blocks      []InfantryBlock
	nextBlockID uint64

	projectiles      []*projectile.Projectile
	nextProjectileID uint64

	step int64

	logger          *slog.Logger
	perf            *telemetry.PerfCollector
	diag            *telemetry.DiagnosticsCollector
	logTrajectories bool
}

// SetTrajectoryLogging toggles the bounded per-projectile trajectory log
// (spec.md §9 "Trajectory storage"). Disabled by default. The flag is read
// on every Step, so it applies to all in-flight projectiles: while it is
// off, no samples are recorded and no Trajectory slice is allocated.
func (w *World) SetTrajectoryLogging(enabled bool) { w.logTrajectories = enabled }

// AttachLogger sets the logger used for contract-violation and
// construction-failure diagnostics. A nil logger (the default) falls back
// to slog.Default() at each use site rather than panicking.
func (w *World) AttachLogger(logger *slog.Logger) { w.logger = logger }

// AttachPerfCollector wires a telemetry.PerfCollector into Step's phase
// timing. Disabled (nil, the default) unless a caller opts in: timing
// calls add overhead an unattached World never pays.
func (w *World) AttachPerfCollector(p *telemetry.PerfCollector) { w.perf = p }

// AttachDiagnostics wires a telemetry.DiagnosticsCollector that records
// one telemetry.StepSample per Step call. Disabled (nil, the default)
// unless a caller opts in.
func (w *World) AttachDiagnostics(d *telemetry.DiagnosticsCollector) { w.diag = d }

func (w *World) log() *slog.Logger {
	if w.logger != nil {
		return w.logger
	}
	return slog.Default()
}

// Physics and geometry flow through the ECS layer as float32 (matching
// the kinematics and collision packages), while params.Parameters keeps
// float64 for configuration precision; these convert at the boundary.
func (w *World) arenaW() float32       { return float32(w.params.ArenaWidth()) }
func (w *World) arenaH() float32       { return float32(w.params.ArenaHeight()) }
func (w *World) dt() float32           { return float32(w.params.DT()) }
func (w *World) gravity() float32      { return float32(w.params.Gravity()) }
func (w *World) agentRadius() float32  { return float32(w.params.AgentRadius()) }
func (w *World) gridCellSize() float32 { return float32(w.params.GridCellSize()) }

// Construct builds an empty world from validated parameters and a seed.
// Per spec.md §7, failure here is a construction error: the returned
// world must not be used.
func Construct(p params.Parameters, seed int64) (*World, error) {
	ecsWorld := ecs.NewWorld()

	w := &World{
		params:   p,
		rng:      simrng.New(seed),
		ecsWorld: ecsWorld,
		mapper: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Control,
			components.Attributes,
			components.Liveness,
		](ecsWorld),
		posMap:  ecs.NewMap1[components.Position](ecsWorld),
		velMap:  ecs.NewMap1[components.Velocity](ecsWorld),
		rotMap:  ecs.NewMap1[components.Rotation](ecsWorld),
		liveMap: ecs.NewMap1[components.Liveness](ecsWorld),
		ctrlMap: ecs.NewMap1[components.Control](ecsWorld),
		attrMap: ecs.NewMap1[components.Attributes](ecsWorld),
		agents:  make(map[uint64]agentRecord),
	}
	w.grid = spatial.NewUniformGrid(w.arenaW(), w.arenaH(), w.gridCellSize())
	w.kinematicsSys = kinematics.NewSystem(ecsWorld, w.arenaW(), w.arenaH())
	return w, nil
}

// Reset reseeds the world and clears all agents, projectiles and events,
// as if freshly constructed with the same parameters.
func (w *World) Reset(seed int64) {
	ecsWorld := ecs.NewWorld()
	w.ecsWorld = ecsWorld
	w.mapper = ecs.NewMap7[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Control,
		components.Attributes,
		components.Liveness,
	](ecsWorld)
	w.posMap = ecs.NewMap1[components.Position](ecsWorld)
	w.velMap = ecs.NewMap1[components.Velocity](ecsWorld)
	w.rotMap = ecs.NewMap1[components.Rotation](ecsWorld)
	w.liveMap = ecs.NewMap1[components.Liveness](ecsWorld)
	w.ctrlMap = ecs.NewMap1[components.Control](ecsWorld)
	w.attrMap = ecs.NewMap1[components.Attributes](ecsWorld)
	w.kinematicsSys = kinematics.NewSystem(ecsWorld, w.arenaW(), w.arenaH())
	w.grid = spatial.NewUniformGrid(w.arenaW(), w.arenaH(), w.gridCellSize())

	w.rng.Reset(seed)
	w.agents = make(map[uint64]agentRecord)
	w.agentIDs = nil
	w.nextAgentID = 0
	w.blocks = nil
	w.nextBlockID = 0
	w.projectiles = nil
	w.nextProjectileID = 0
	w.buf = events.Buffer{}
	w.step = 0
}

// AddAgent creates a new live agent and returns its id.
func (w *World) AddAgent(spec AgentSpec) uint64 {
	id := w.nextAgentID
	w.nextAgentID++

	pos := components.Position{X: spec.X, Y: spec.Y}
	vel := components.Velocity{}
	rot := components.Rotation{Heading: spec.Heading}
	body := components.Body{Radius: w.agentRadius()}
	ctrl := components.Control{DesiredHeading: spec.Heading}
	attrs := spec.Attributes
	live := components.Liveness{Alive: true}

	entity := w.mapper.NewEntity(&pos, &vel, &rot, &body, &ctrl, &attrs, &live)
	w.agents[id] = agentRecord{entity: entity, team: spec.Team}
	w.agentIDs = insertSorted(w.agentIDs, id)
	return id
}

// AddInfantryBlock registers a new static formation and returns its id.
func (w *World) AddInfantryBlock(spec InfantryBlockSpec) uint64 {
	id := w.nextBlockID
	w.nextBlockID++
	w.blocks = append(w.blocks, InfantryBlock{
		ID:   id,
		Team: spec.Team,
		MinX: spec.MinX, MinY: spec.MinY,
		MaxX: spec.MaxX, MaxY: spec.MaxY,
	})
	return id
}

// InfantryBlocks returns the registered static formations.
func (w *World) InfantryBlocks() []InfantryBlock { return w.blocks }

// Step advances the simulation by one tick of length params.DT(),
// applying actions, then running kinematics, spatial rebuild, collision
// resolution and projectile integration in that fixed order (spec.md
// §4.6). All actions are validated before any state is mutated, so a
// rejected action leaves the world completely untouched.
func (w *World) Step(actions map[uint64]Action) error {
	if w.perf != nil {
		w.perf.StartStep()
	}

	for id := range actions {
		rec, ok := w.agents[id]
		if !ok {
			err := newContractError("step", fmt.Errorf("unknown agent id %d", id))
			w.log().Warn("step rejected", "error", err)
			return err
		}
		if !w.liveMap.Get(rec.entity).Alive {
			err := newContractError("step", fmt.Errorf("agent %d is dead", id))
			w.log().Warn("step rejected", "error", err)
			return err
		}
	}

	if w.perf != nil {
		w.perf.StartPhase(telemetry.PhaseActions)
	}
	for id, action := range actions {
		rec := w.agents[id]
		ctrl := w.ctrlMap.Get(rec.entity)
		ctrl.DesiredVX = action.DesiredVX
		ctrl.DesiredVY = action.DesiredVY
	}

	dt := w.dt()
	if w.perf != nil {
		w.perf.StartPhase(telemetry.PhaseKinematics)
	}
	w.kinematicsSys.Update(dt)

	if w.perf != nil {
		w.perf.StartPhase(telemetry.PhaseSpatialRebuild)
	}
	w.rebuildGrid()

	if w.perf != nil {
		w.perf.StartPhase(telemetry.PhaseCollisions)
	}
	liveAgents := w.liveCollisionAgents()
	stats := collision.Resolve(liveAgents, w.grid, w.agentRadius(), w.params.NaiveGridCrossover(), w.step, &w.buf)
	w.writeBackCollisionResults(liveAgents)
	if w.diag != nil {
		w.diag.Record(telemetry.StepSample{
			Step:           w.step,
			PairsChecked:   stats.PairsChecked,
			PairsColliding: stats.PairsColliding,
			CellsOccupied:  w.grid.CellsOccupied(),
			Slacks:         stats.Slacks,
		})
	}

	if w.perf != nil {
		w.perf.StartPhase(telemetry.PhaseProjectiles)
	}
	for _, p := range w.projectiles {
		projectile.Step(p, dt, w.gravity(), w.arenaW(), w.arenaH(), w.logTrajectories, w.step, &w.buf)
	}

	w.step++
	if w.perf != nil {
		w.perf.EndStep()
	}
	return nil
}

// rebuildGrid clears and refills the spatial index from current live
// agent positions.
func (w *World) rebuildGrid() {
	points := make([]spatial.Point, 0, len(w.agentIDs))
	for _, id := range w.agentIDs {
		rec := w.agents[id]
		if !w.liveMap.Get(rec.entity).Alive {
			continue
		}
		pos := w.posMap.Get(rec.entity)
		points = append(points, spatial.Point{ID: id, X: pos.X, Y: pos.Y})
	}
	w.grid.Rebuild(points)
}

// liveCollisionAgents snapshots every live agent's position and velocity
// into the plain structs the collision resolver operates on, in
// ascending id order for determinism.
func (w *World) liveCollisionAgents() []*collision.Agent {
	agents := make([]*collision.Agent, 0, len(w.agentIDs))
	for _, id := range w.agentIDs {
		rec := w.agents[id]
		if !w.liveMap.Get(rec.entity).Alive {
			continue
		}
		pos := w.posMap.Get(rec.entity)
		vel := w.velMap.Get(rec.entity)
		agents = append(agents, &collision.Agent{ID: id, X: pos.X, Y: pos.Y, VX: vel.X, VY: vel.Y})
	}
	return agents
}

// writeBackCollisionResults copies resolved positions/velocities back
// into ECS storage and re-applies the arena clamp, since overlap
// correction can push an agent back outside the arena (spec.md §4.4).
//
// The resolver's guards (the zero-distance tie-break in particular) are
// meant to make a non-finite result unreachable; the finiteness check
// below is defensive. It logs a KindDegenerate error rather than
// returning one, since by this point collision resolution has already
// mutated state and Step's "rejected operations leave state untouched"
// contract only applies to validation performed before mutation begins.
func (w *World) writeBackCollisionResults(agents []*collision.Agent) {
	radius := w.agentRadius()
	for _, a := range agents {
		if !isFinite(a.X) || !isFinite(a.Y) || !isFinite(a.VX) || !isFinite(a.VY) {
			err := newDegenerateError("step", fmt.Errorf("agent %d has a non-finite state after collision resolution", a.ID))
			w.log().Error("degenerate state detected", "error", err)
			continue
		}
		rec := w.agents[a.ID]
		pos := w.posMap.Get(rec.entity)
		vel := w.velMap.Get(rec.entity)
		pos.X, pos.Y = a.X, a.Y
		vel.X, vel.Y = a.VX, a.VY
		kinematics.ClampToArena(pos, vel, radius, w.arenaW(), w.arenaH())
	}
}

// LaunchProjectile throws a new projectile from launcherID's current
// position and returns its id. Rejected as a contract violation if
// launcherID is unknown, dead, or any parameter is non-finite.
func (w *World) LaunchProjectile(launcherID uint64, azimuth, loft, speed float32) (uint64, error) {
	rec, ok := w.agents[launcherID]
	if !ok {
		err := newContractError("launch_projectile", fmt.Errorf("unknown launcher id %d", launcherID))
		w.log().Warn("launch_projectile rejected", "error", err)
		return 0, err
	}
	if !w.liveMap.Get(rec.entity).Alive {
		err := newContractError("launch_projectile", fmt.Errorf("launcher %d is dead", launcherID))
		w.log().Warn("launch_projectile rejected", "error", err)
		return 0, err
	}
	if !isFinite(azimuth) || !isFinite(loft) || !isFinite(speed) {
		err := newContractError("launch_projectile", fmt.Errorf("non-finite launch parameters"))
		w.log().Warn("launch_projectile rejected", "error", err)
		return 0, err
	}

	pos := w.posMap.Get(rec.entity)
	id := w.nextProjectileID
	w.nextProjectileID++

	const launchHeight = 1.5
	p := projectile.Launch(id, launcherID, pos.X, pos.Y, launchHeight, azimuth, loft, speed, w.step, &w.buf)
	w.projectiles = append(w.projectiles, p)
	return id, nil
}

// DrainEvents returns every event emitted since the last DrainEvents
// call, then clears the buffer.
func (w *World) DrainEvents() []events.Event { return w.buf.Drain() }

// StepCount returns the number of completed steps.
func (w *World) StepCount() int64 { return w.step }

func isFinite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func insertSorted(ids []uint64, id uint64) []uint64 {
	idx := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[idx+1:], ids[idx:])
	ids[idx] = id
	return ids
}

// StateHash returns a 128-bit digest over the canonical serialization of
// all agent states (dead agents included), all projectile states, the step
// counter and the RNG state (spec.md §4.6), as two concatenated 64-bit
// xxhash digests: one over the byte stream and one over the same stream
// followed by a 0x01 byte.
func (w *World) StateHash() [2]uint64 {
	buf := w.canonicalBytes()
	h1 := xxhash.Sum64(buf)
	h2 := xxhash.Sum64(append(buf, 0x01))
	return [2]uint64{h1, h2}
}

// canonicalBytes produces the byte-identical-across-runs serialization
// StateHash is built on (Snapshot uses its own encoding): agents by ascending id
// (position, velocity, heading, alive), projectiles by ascending id
// (position, velocity, lifecycle), step count, then RNG state.
func (w *World) canonicalBytes() []byte {
	buf := make([]byte, 0, 64*(len(w.agentIDs)+len(w.projectiles))+32)

	for _, id := range w.agentIDs {
		rec := w.agents[id]
		pos := w.posMap.Get(rec.entity)
		vel := w.velMap.Get(rec.entity)
		rot := w.rotMap.Get(rec.entity)
		live := w.liveMap.Get(rec.entity)
		buf = appendUint64(buf, id)
		buf = appendFloat32(buf, pos.X)
		buf = appendFloat32(buf, pos.Y)
		buf = appendFloat32(buf, vel.X)
		buf = appendFloat32(buf, vel.Y)
		buf = appendFloat32(buf, rot.Heading)
		buf = appendBool(buf, live.Alive)
	}

	ids := make([]uint64, len(w.projectiles))
	byID := make(map[uint64]*projectile.Projectile, len(w.projectiles))
	for i, p := range w.projectiles {
		ids[i] = p.ID
		byID[p.ID] = p
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		p := byID[id]
		buf = appendUint64(buf, p.ID)
		buf = appendFloat32(buf, p.X)
		buf = appendFloat32(buf, p.Y)
		buf = appendFloat32(buf, p.Z)
		buf = appendFloat32(buf, p.VX)
		buf = appendFloat32(buf, p.VY)
		buf = appendFloat32(buf, p.VZ)
		buf = append(buf, byte(p.Phase))
	}

	buf = appendUint64(buf, uint64(w.step))
	buf = w.rng.AppendState(buf)
	return buf
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return append(dst, b[:]...)
}

func appendFloat32(dst []byte, v float32) []byte {
	bits := math.Float32bits(v)
	var b [4]byte
	for i := 0; i < 4; i++ {
		b[i] = byte(bits >> (8 * i))
	}
	return append(dst, b[:]...)
}

func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}
