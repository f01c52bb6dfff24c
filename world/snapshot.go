package world

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/thelast2know/ancient-combat-simulator/components"
	"github.com/thelast2know/ancient-combat-simulator/events"
	"github.com/thelast2know/ancient-combat-simulator/params"
	"github.com/thelast2know/ancient-combat-simulator/projectile"
)

// Snapshot encodes the complete world state for replay, in the canonical
// ordering of spec.md §6: parameters, seed, step count, agents by
// ascending id, projectiles by ascending id. Floating-point values use
// their native binary representation; no text round-tripping is involved
// on this path.
func (w *World) Snapshot() []byte {
	var buf []byte

	buf = appendFloat64(buf, w.params.ArenaWidth())
	buf = appendFloat64(buf, w.params.ArenaHeight())
	buf = appendFloat64(buf, w.params.DT())
	buf = appendFloat64(buf, w.params.Gravity())
	buf = appendFloat64(buf, w.params.AgentRadius())
	buf = appendFloat64(buf, w.params.GridCellSize())
	buf = appendUint64(buf, uint64(w.params.NaiveGridCrossover()))
	buf = appendFloat64(buf, w.params.Restitution())

	buf = appendUint64(buf, uint64(w.rng.Seed()))
	buf = appendUint64(buf, w.rng.Draws())
	buf = appendUint64(buf, uint64(w.step))

	buf = appendUint64(buf, uint64(len(w.agentIDs)))
	for _, id := range w.agentIDs {
		rec := w.agents[id]
		pos := w.posMap.Get(rec.entity)
		vel := w.velMap.Get(rec.entity)
		rot := w.rotMap.Get(rec.entity)
		ctrl := w.ctrlMap.Get(rec.entity)
		live := w.liveMap.Get(rec.entity)
		attrs := w.attrMap.Get(rec.entity)

		buf = appendUint64(buf, id)
		buf = append(buf, rec.team)
		buf = appendFloat32(buf, pos.X)
		buf = appendFloat32(buf, pos.Y)
		buf = appendFloat32(buf, vel.X)
		buf = appendFloat32(buf, vel.Y)
		buf = appendFloat32(buf, rot.Heading)
		buf = appendFloat32(buf, ctrl.DesiredVX)
		buf = appendFloat32(buf, ctrl.DesiredVY)
		buf = appendFloat32(buf, ctrl.DesiredHeading)
		buf = appendBool(buf, live.Alive)
		buf = appendAttributes(buf, *attrs)
	}

	buf = appendUint64(buf, uint64(len(w.blocks)))
	for _, b := range w.blocks {
		buf = appendUint64(buf, b.ID)
		buf = append(buf, b.Team)
		buf = appendFloat32(buf, b.MinX)
		buf = appendFloat32(buf, b.MinY)
		buf = appendFloat32(buf, b.MaxX)
		buf = appendFloat32(buf, b.MaxY)
	}

	buf = appendUint64(buf, uint64(len(w.projectiles)))
	for _, p := range w.projectiles {
		buf = appendUint64(buf, p.ID)
		buf = appendUint64(buf, p.LauncherID)
		buf = appendFloat32(buf, p.X)
		buf = appendFloat32(buf, p.Y)
		buf = appendFloat32(buf, p.Z)
		buf = appendFloat32(buf, p.VX)
		buf = appendFloat32(buf, p.VY)
		buf = appendFloat32(buf, p.VZ)
		buf = append(buf, byte(p.Phase))
		buf = appendFloat32(buf, p.ImpactX)
		buf = appendFloat32(buf, p.ImpactY)
	}

	pending := w.buf.Peek()
	buf = appendUint64(buf, uint64(len(pending)))
	for _, ev := range pending {
		buf = appendEvent(buf, ev)
	}

	return buf
}

func appendEvent(dst []byte, ev events.Event) []byte {
	dst = append(dst, byte(ev.Kind))
	dst = appendUint64(dst, uint64(ev.Step))
	dst = appendUint64(dst, ev.Actor)
	dst = appendUint64(dst, ev.Target)
	dst = appendBool(dst, ev.HasPos)
	dst = appendFloat32(dst, ev.Pos.X)
	dst = appendFloat32(dst, ev.Pos.Y)
	dst = appendFloat32(dst, ev.Pos.Z)
	dst = appendBool(dst, ev.HasValue)
	dst = appendFloat64(dst, ev.Value)
	return dst
}

// Restore builds a new World whose state is the contents of a Snapshot.
// A malformed or truncated blob is a construction error: no world is
// returned, matching the failure mode of Construct.
func Restore(data []byte) (*World, error) {
	r := &reader{buf: data}

	arenaWidth := r.float64()
	arenaHeight := r.float64()
	dt := r.float64()
	gravity := r.float64()
	agentRadius := r.float64()
	gridCellSize := r.float64()
	naiveGridCrossover := int(r.uint64())
	restitution := r.float64()
	if r.err != nil {
		return nil, failRestore(r.err)
	}

	doc := params.Document{
		Arena:     params.ArenaConfig{Width: arenaWidth, Height: arenaHeight},
		Physics:   params.PhysicsConfig{DT: dt, Gravity: gravity},
		Agent:     params.AgentConfig{Radius: agentRadius},
		Collision: params.CollisionConfig{GridCellSize: gridCellSize, NaiveGridCrossover: naiveGridCrossover, Restitution: restitution},
	}
	p, err := doc.Build()
	if err != nil {
		return nil, failRestore(err)
	}

	seed := int64(r.uint64())
	draws := r.uint64()
	step := int64(r.uint64())
	if r.err != nil {
		return nil, failRestore(r.err)
	}

	w, err := Construct(p, seed)
	if err != nil {
		return nil, failRestore(err)
	}
	w.rng.Reset(seed)
	for i := uint64(0); i < draws; i++ {
		w.rng.Float64()
	}
	w.step = step

	agentCount := r.uint64()
	for i := uint64(0); i < agentCount && r.err == nil; i++ {
		id := r.uint64()
		team := r.byte()
		posX := r.float32()
		posY := r.float32()
		velX := r.float32()
		velY := r.float32()
		heading := r.float32()
		desiredVX := r.float32()
		desiredVY := r.float32()
		desiredHeading := r.float32()
		alive := r.boolean()
		attrs := r.attributes()
		if r.err != nil {
			break
		}

		spec := AgentSpec{Team: team, X: posX, Y: posY, Heading: heading, Attributes: attrs}
		gotID := w.AddAgent(spec)
		if gotID != id {
			err := fmt.Errorf("agent id mismatch: snapshot had %d, allocator produced %d", id, gotID)
			w.log().Error("restore failed", "error", err)
			return nil, newConstructionError("restore", err)
		}
		rec := w.agents[id]
		vel := w.velMap.Get(rec.entity)
		vel.X, vel.Y = velX, velY
		ctrl := w.ctrlMap.Get(rec.entity)
		ctrl.DesiredVX, ctrl.DesiredVY, ctrl.DesiredHeading = desiredVX, desiredVY, desiredHeading
		live := w.liveMap.Get(rec.entity)
		live.Alive = alive
	}

	blockCount := r.uint64()
	for i := uint64(0); i < blockCount && r.err == nil; i++ {
		id := r.uint64()
		team := r.byte()
		minX, minY, maxX, maxY := r.float32(), r.float32(), r.float32(), r.float32()
		w.blocks = append(w.blocks, InfantryBlock{ID: id, Team: team, MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY})
		if id >= w.nextBlockID {
			w.nextBlockID = id + 1
		}
	}

	projCount := r.uint64()
	for i := uint64(0); i < projCount && r.err == nil; i++ {
		p := &projectile.Projectile{
			ID:         r.uint64(),
			LauncherID: r.uint64(),
		}
		p.X, p.Y, p.Z = r.float32(), r.float32(), r.float32()
		p.VX, p.VY, p.VZ = r.float32(), r.float32(), r.float32()
		p.Phase = projectile.Lifecycle(r.byte())
		p.ImpactX, p.ImpactY = r.float32(), r.float32()
		if r.err != nil {
			break
		}
		w.projectiles = append(w.projectiles, p)
		if p.ID >= w.nextProjectileID {
			w.nextProjectileID = p.ID + 1
		}
	}

	eventCount := r.uint64()
	pending := make([]events.Event, 0, eventCount)
	for i := uint64(0); i < eventCount && r.err == nil; i++ {
		pending = append(pending, r.event())
	}
	w.buf.Restore(pending)

	if r.err != nil {
		return nil, failRestore(r.err)
	}
	return w, nil
}

// failRestore logs a restore failure at Error level before wrapping it.
// Restore has no World to log through until Construct succeeds partway
// in, so it always falls back to slog.Default().
func failRestore(err error) error {
	wrapped := newConstructionError("restore", err)
	slog.Default().Error("restore failed", "error", wrapped)
	return wrapped
}

func appendFloat64(dst []byte, v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return append(dst, b[:]...)
}

func appendAttributes(dst []byte, a components.Attributes) []byte {
	dst = appendFloat32(dst, a.Strength)
	dst = appendFloat32(dst, a.CruiseSpeed)
	dst = appendFloat32(dst, a.MaxSpeed)
	dst = appendFloat32(dst, a.Acceleration)
	dst = appendFloat32(dst, a.Agility)
	dst = appendFloat32(dst, a.Precision)
	dst = appendFloat32(dst, a.Impetuousness)
	dst = appendFloat32(dst, a.Timidity)
	return dst
}

// reader walks a snapshot byte slice sequentially, latching the first
// error (typically out-of-range) so callers can check it once at the end.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("snapshot truncated at offset %d, need %d more bytes", r.off, n)
		return nil
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) uint64() uint64 {
	b := r.need(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) float64() float64 {
	return math.Float64frombits(r.uint64())
}

func (r *reader) float32() float32 {
	b := r.need(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *reader) byte() uint8 {
	b := r.need(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) boolean() bool {
	return r.byte() != 0
}

func (r *reader) event() events.Event {
	kind := events.Kind(r.byte())
	step := int64(r.uint64())
	actor := r.uint64()
	target := r.uint64()
	hasPos := r.boolean()
	x, y, z := r.float32(), r.float32(), r.float32()
	hasValue := r.boolean()
	value := r.float64()
	return events.Event{
		Kind: kind, Step: step, Actor: actor, Target: target,
		HasPos: hasPos, Pos: events.Position{X: x, Y: y, Z: z},
		HasValue: hasValue, Value: value,
	}
}

func (r *reader) attributes() components.Attributes {
	return components.Attributes{
		Strength:      r.float32(),
		CruiseSpeed:   r.float32(),
		MaxSpeed:      r.float32(),
		Acceleration:  r.float32(),
		Agility:       r.float32(),
		Precision:     r.float32(),
		Impetuousness: r.float32(),
		Timidity:      r.float32(),
	}
}
