package system

import (
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/quadforge/engine/internal/config"
	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/core/event"
	coresys "github.com/quadforge/engine/internal/core/system"
	"github.com/quadforge/engine/internal/physics"
	"github.com/quadforge/engine/internal/scene"
)

const (
	minDenominator float32 = 1e-6
	minTangentSq   float32 = 1e-6
	timeEpsilon    float32 = 1e-5
)

// PhysicsStats describes the last fixed tick.
type PhysicsStats struct {
	Bodies     int
	Pairs      int
	Contacts   int // colliding pairs seen in the first pass
	Iterations int // passes actually run
	Cap        int // adaptive iteration cap used
	Cost       time.Duration
}

// PhysicsSystem integrates rigidbodies and resolves box collisions once per
// fixed tick. Phase 1 (Physics).
//
// Script callbacks run inside the relaxation loop and may create or destroy
// entities, so every handle is re-validated before it is dereferenced.
type PhysicsSystem struct {
	coresys.Base
	cfg  config.PhysicsConfig
	log  *zap.Logger
	rng  *rand.Rand
	hash *physics.SpatialHash
	now  func() time.Time

	iterations int
	lastCost   time.Duration
	impulsed   map[physics.Pair]struct{}
	stats      PhysicsStats
}

func NewPhysicsSystem(cfg config.PhysicsConfig, log *zap.Logger) *PhysicsSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &PhysicsSystem{
		cfg:        cfg,
		log:        log.Named("physics"),
		rng:        rand.New(rand.NewSource(seed)),
		hash:       physics.NewSpatialHash(cfg.CellSize),
		now:        time.Now,
		iterations: cfg.MaxIterations,
		impulsed:   make(map[physics.Pair]struct{}),
	}
}

func (s *PhysicsSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

// SetClock replaces the clock used to measure tick cost.
func (s *PhysicsSystem) SetClock(now func() time.Time) { s.now = now }

func (s *PhysicsSystem) Config() config.PhysicsConfig { return s.cfg }
func (s *PhysicsSystem) Iterations() int              { return s.iterations }
func (s *PhysicsSystem) Stats() PhysicsStats          { return s.stats }

func (s *PhysicsSystem) FixedUpdate(dt float32) {
	if s.Registry() == nil || dt <= 0 {
		return
	}
	start := s.now()
	s.adaptIterations(dt)
	s.ApplyMotion(dt)
	s.ResolveCollisions(dt)
	s.lastCost = s.now().Sub(start)
	s.stats.Cost = s.lastCost
}

// adaptIterations lowers the cap when the previous tick overran the fixed
// step and raises it back when there was headroom.
func (s *PhysicsSystem) adaptIterations(dt float32) {
	step := time.Duration(float64(dt) * float64(time.Second))
	prev := s.iterations
	switch {
	case s.lastCost > step:
		s.iterations = max(1, s.iterations-1)
	case s.lastCost < step/2:
		s.iterations = min(s.cfg.MaxIterations, s.iterations+1)
	}
	if s.iterations != prev {
		s.log.Debug("iteration cap changed",
			zap.Int("from", prev),
			zap.Int("to", s.iterations),
			zap.Duration("last_cost", s.lastCost),
		)
	}
}

// ApplyMotion integrates every non-kinematic, awake body and updates its
// sleep timer.
func (s *PhysicsSystem) ApplyMotion(dt float32) {
	reg := s.Registry()
	gravity := mgl32.Vec2(s.cfg.Gravity)
	for _, id := range ecs.With2[*scene.Transform, *physics.Rigidbody](reg) {
		t, ok := ecs.TryGetComponent[*scene.Transform](reg, id)
		if !ok {
			continue
		}
		rb, ok := ecs.TryGetComponent[*physics.Rigidbody](reg, id)
		if !ok || rb.Kinematic || rb.Sleeping {
			continue
		}
		t.Translate(rb.Integrate(gravity, dt, s.cfg.UnitsPerMeter, s.cfg.Damping))
		rb.TrackSleep(dt, s.cfg.SleepSpeed, s.cfg.SleepTime)
	}
}

type body struct {
	t   *scene.Transform
	rb  *physics.Rigidbody
	col *physics.BoxCollider
}

func (s *PhysicsSystem) body(id ecs.EntityID) (body, bool) {
	reg := s.Registry()
	if !reg.IsValidEntity(id) {
		return body{}, false
	}
	t, ok := ecs.TryGetComponent[*scene.Transform](reg, id)
	if !ok {
		return body{}, false
	}
	rb, ok := ecs.TryGetComponent[*physics.Rigidbody](reg, id)
	if !ok {
		return body{}, false
	}
	col, ok := ecs.TryGetComponent[*physics.BoxCollider](reg, id)
	if !ok {
		return body{}, false
	}
	return body{t: t, rb: rb, col: col}, true
}

// ResolveCollisions runs broad phase, the relaxation loop and contact
// expiry for one fixed tick.
func (s *PhysicsSystem) ResolveCollisions(dt float32) {
	reg := s.Registry()
	ids := ecs.With3[*scene.Transform, *physics.Rigidbody, *physics.BoxCollider](reg)
	slices.Sort(ids)

	s.hash.Clear()
	for _, id := range ids {
		b, ok := s.body(id)
		if !ok {
			continue
		}
		b.rb.OnGround = false
		b.rb.OnWall = false
		b.col.Refresh(b.t.Position, b.t.Scale, b.t.Rotation)
		s.hash.Insert(id, b.col.Bounds)
	}

	pairs := s.hash.BroadPhasePairs()
	s.rng.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
	clear(s.impulsed)

	s.stats = PhysicsStats{Bodies: len(ids), Pairs: len(pairs), Cap: s.iterations}
	for iter := 0; iter < s.iterations; iter++ {
		s.stats.Iterations++
		moved := false
		for _, p := range pairs {
			colliding, resolved := s.resolvePair(p, dt)
			if colliding && iter == 0 {
				s.stats.Contacts++
			}
			moved = moved || resolved
		}
		if !moved {
			break
		}
	}

	s.expireContacts(ids, dt)
}

// resolvePair handles one candidate pair. It reports whether the pair
// overlaps and whether any correction or impulse was applied.
func (s *PhysicsSystem) resolvePair(p physics.Pair, dt float32) (colliding, resolved bool) {
	a, ok := s.body(p.A)
	if !ok {
		return false, false
	}
	b, ok := s.body(p.B)
	if !ok {
		return false, false
	}
	if a.rb.Kinematic && b.rb.Kinematic {
		return false, false
	}

	m := physics.CheckAABBCollision(a.col.Bounds, b.col.Bounds)
	if !m.Colliding {
		return false, false
	}
	trigger := a.col.IsTrigger || b.col.IsTrigger

	reg := s.Registry()
	s.touch(p.A, a.col, p.B, trigger, m)
	if !reg.IsValidEntity(p.A) || !reg.IsValidEntity(p.B) {
		return true, false
	}
	s.touch(p.B, b.col, p.A, trigger, m.Flip())

	// Callbacks may have destroyed either side or removed components.
	if a, ok = s.body(p.A); !ok {
		return true, false
	}
	if b, ok = s.body(p.B); !ok {
		return true, false
	}

	// Trigger overlap depth never wakes a body, only motion does.
	vn := b.rb.Velocity.Sub(a.rb.Velocity).Dot(m.Normal)
	pen := m.Penetration
	if trigger {
		pen = 0
	}
	s.wake(a.rb, b.rb, vn, pen)
	s.wake(b.rb, a.rb, vn, pen)
	if trigger {
		return true, false
	}

	// Each body is pushed out along its own contact normal.
	setContactFlags(a.rb, m.Normal.Mul(-1))
	setContactFlags(b.rb, m.Normal)

	if a.rb.Sleeping && b.rb.Sleeping {
		return true, false
	}
	return true, s.separate(p, a, b, m)
}

// touch updates self's record of other, firing Enter on first contact and
// Stay afterwards, at most once per tick.
func (s *PhysicsSystem) touch(self ecs.EntityID, c *physics.BoxCollider, other ecs.EntityID, trigger bool, m physics.Manifold) {
	records := c.Records(trigger)
	rec, existed := records[other]
	if existed && rec.UpdatedThisFrame {
		return
	}
	if !existed {
		rec = &physics.ContactRecord{Other: other, Trigger: trigger}
		records[other] = rec
	}
	rec.UpdatedThisFrame = true
	rec.Idle = 0

	kind := scene.ContactStay
	if !existed {
		kind = scene.ContactEnter
		s.emit(event.ContactEnter, self, other, trigger)
	}
	scene.DispatchContact(s.Registry(), self, other, kind, trigger, m)
}

func (s *PhysicsSystem) emit(phase event.ContactPhase, self, other ecs.EntityID, trigger bool) {
	if bus := s.Bus(); bus != nil {
		event.Emit(bus, event.Contact{Phase: phase, Self: self, Other: other, Trigger: trigger})
	}
}

func (s *PhysicsSystem) wake(rb, other *physics.Rigidbody, vn, penetration float32) {
	if !rb.Sleeping || rb.Kinematic {
		return
	}
	threshold := s.cfg.SleepSpeed
	if abs32(vn) > threshold || other.Speed() > threshold || penetration-s.cfg.Slop > threshold {
		rb.Wake()
	}
}

func setContactFlags(rb *physics.Rigidbody, n mgl32.Vec2) {
	if rb.Kinematic {
		return
	}
	if n.Dot(mgl32.Vec2{0, 1}) > 0.5 {
		rb.OnGround = true
	}
	if abs32(n.Dot(mgl32.Vec2{1, 0})) > 0.5 {
		rb.OnWall = true
	}
}

// inverseMass treats sleeping bodies as immovable.
func inverseMass(rb *physics.Rigidbody) mgl32.Vec2 {
	if rb.Sleeping {
		return mgl32.Vec2{}
	}
	return rb.InverseMass()
}

// separate applies positional correction on every pass and the impulses once
// per pair per tick: restitution when the bodies close and at least one is
// bounceable, friction on every solid contact.
func (s *PhysicsSystem) separate(p physics.Pair, a, b body, m physics.Manifold) bool {
	n := m.Normal
	nn := mgl32.Vec2{n[0] * n[0], n[1] * n[1]}
	invA, invB := inverseMass(a.rb), inverseMass(b.rb)
	wA, wB := invA.Dot(nn), invB.Dot(nn)
	wSum := wA + wB
	if wSum <= minDenominator {
		return false
	}

	resolved := false
	if depth := max(m.Penetration-s.cfg.Slop, 0) * s.cfg.CorrectionFactor; depth > 0 {
		k := depth / wSum
		dA := mgl32.Vec2{-n[0] * invA[0] * k, -n[1] * invA[1] * k}
		dB := mgl32.Vec2{n[0] * invB[0] * k, n[1] * invB[1] * k}
		a.t.Position = a.t.Position.Add(dA)
		b.t.Position = b.t.Position.Add(dB)
		a.col.Bounds = a.col.Bounds.Translate(dA)
		b.col.Bounds = b.col.Bounds.Translate(dB)
		resolved = true
	}

	if _, done := s.impulsed[p]; done {
		return resolved
	}
	s.impulsed[p] = struct{}{}

	rel := b.rb.Velocity.Sub(a.rb.Velocity)
	vn := rel.Dot(n)
	var impulse mgl32.Vec2
	if vn < 0 && (a.rb.Bounceable || b.rb.Bounceable) {
		e := 0.5 * (a.rb.Restitution + b.rb.Restitution)
		impulse = n.Mul(-(1 + e) * vn / wSum)
	}
	impulse = impulse.Add(frictionImpulse(a.rb, b.rb, rel.Sub(n.Mul(vn)), rel, invA.Add(invB)))
	if impulse == (mgl32.Vec2{}) {
		return resolved
	}

	a.rb.Velocity = a.rb.Velocity.Sub(mgl32.Vec2{impulse[0] * invA[0], impulse[1] * invA[1]})
	b.rb.Velocity = b.rb.Velocity.Add(mgl32.Vec2{impulse[0] * invB[0], impulse[1] * invB[1]})
	a.rb.ApplyFreeze()
	b.rb.ApplyFreeze()
	return true
}

// frictionImpulse damps the tangential relative velocity by the combined
// coefficient sqrt(fa*fb). It applies whether or not the bodies are closing.
func frictionImpulse(a, b *physics.Rigidbody, tangentVel, rel, invSum mgl32.Vec2) mgl32.Vec2 {
	if tangentVel.Dot(tangentVel) <= minTangentSq || a.Friction < 0 || b.Friction < 0 {
		return mgl32.Vec2{}
	}
	mu := float32(math.Sqrt(float64(a.Friction * b.Friction)))
	if !finite(mu) || mu <= 0 {
		return mgl32.Vec2{}
	}
	tangent := tangentVel.Normalize()
	denom := invSum.Dot(mgl32.Vec2{tangent[0] * tangent[0], tangent[1] * tangent[1]})
	if denom <= minDenominator {
		return mgl32.Vec2{}
	}
	return tangent.Mul(-mu * rel.Dot(tangent) / denom)
}

// expireContacts ages untouched records and dispatches Exit for records
// idle past the expiry threshold.
func (s *PhysicsSystem) expireContacts(ids []ecs.EntityID, dt float32) {
	reg := s.Registry()
	for _, id := range ids {
		if !reg.IsValidEntity(id) {
			continue
		}
		c, ok := ecs.TryGetComponent[*physics.BoxCollider](reg, id)
		if !ok {
			continue
		}
		s.expire(id, c.Records(false), false, dt)
		if reg.IsValidEntity(id) {
			s.expire(id, c.Records(true), true, dt)
		}
	}
}

func (s *PhysicsSystem) expire(id ecs.EntityID, records map[ecs.EntityID]*physics.ContactRecord, trigger bool, dt float32) {
	var expired []ecs.EntityID
	for other, rec := range records {
		if rec.UpdatedThisFrame {
			rec.UpdatedThisFrame = false
			rec.Duration += dt
			continue
		}
		rec.Idle += dt
		if rec.Idle+timeEpsilon >= s.cfg.CollisionExpire {
			expired = append(expired, other)
		}
	}
	slices.Sort(expired)

	reg := s.Registry()
	for _, other := range expired {
		delete(records, other)
		s.emit(event.ContactExit, id, other, trigger)
		scene.DispatchContact(reg, id, other, scene.ContactExit, trigger, physics.Manifold{})
		if !reg.IsValidEntity(id) {
			return
		}
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
