package physics

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/quadforge/engine/internal/core/ecs"
)

// Rigidbody carries the dynamic state of a body. Velocity is in meters per
// second; the physics system converts to world units with UnitsPerMeter.
type Rigidbody struct {
	ecs.Base
	Velocity     mgl32.Vec2
	Acceleration mgl32.Vec2 // reset every tick after integration
	Mass         float32    // <= 0 means infinite mass
	Restitution  float32
	Friction     float32

	AffectedByGravity bool
	Kinematic         bool
	FreezeX           bool
	FreezeY           bool
	Bounceable        bool

	// Derived each tick by the resolver.
	OnGround bool
	OnWall   bool

	Sleeping     bool
	LowSpeedTime float32 // seconds spent under the sleep speed threshold
}

func NewRigidbody() *Rigidbody {
	return &Rigidbody{
		Mass:              1,
		Restitution:       0.4,
		Friction:          0.5,
		AffectedByGravity: true,
	}
}

// AddForce accumulates force/mass into the acceleration for the next tick.
func (r *Rigidbody) AddForce(force mgl32.Vec2) {
	if r.Mass > 0 {
		r.Acceleration = r.Acceleration.Add(force.Mul(1 / r.Mass))
	}
	r.Wake()
}

// AddImpulse changes velocity by impulse/mass immediately.
func (r *Rigidbody) AddImpulse(impulse mgl32.Vec2) {
	if r.Mass > 0 {
		r.Velocity = r.Velocity.Add(impulse.Mul(1 / r.Mass))
	}
	r.Wake()
}

func (r *Rigidbody) SetVelocity(v mgl32.Vec2) {
	r.Velocity = v
	r.Wake()
}

func (r *Rigidbody) Wake() {
	r.Sleeping = false
	r.LowSpeedTime = 0
}

func (r *Rigidbody) Sleep() {
	r.Sleeping = true
	r.Velocity = mgl32.Vec2{}
}

func (r *Rigidbody) Speed() float32 { return r.Velocity.Len() }

// InverseMass returns the per-axis inverse mass. Kinematic bodies, bodies
// with mass <= 0 and frozen axes respond as if infinitely heavy.
func (r *Rigidbody) InverseMass() mgl32.Vec2 {
	if r.Kinematic || r.Mass <= 0 {
		return mgl32.Vec2{}
	}
	inv := 1 / r.Mass
	var out mgl32.Vec2
	if !r.FreezeX {
		out[0] = inv
	}
	if !r.FreezeY {
		out[1] = inv
	}
	return out
}

// Integrate advances the body by dt and returns the displacement in world
// units. Gravity is in m/s² and only pulls bodies that are airborne.
func (r *Rigidbody) Integrate(gravity mgl32.Vec2, dt, unitsPerMeter, damping float32) mgl32.Vec2 {
	if r.AffectedByGravity && !r.OnGround {
		r.Velocity = r.Velocity.Add(gravity.Mul(dt))
	}
	r.Velocity = r.Velocity.Add(r.Acceleration.Mul(dt))
	r.ApplyFreeze()
	d := r.Velocity.Mul(unitsPerMeter * dt)
	r.Acceleration = mgl32.Vec2{}
	r.Velocity = r.Velocity.Mul(damping)
	return d
}

// TrackSleep puts the body to sleep once its speed has stayed under
// speedThreshold for timeThreshold seconds. A faster tick wakes it.
func (r *Rigidbody) TrackSleep(dt, speedThreshold, timeThreshold float32) {
	if r.Speed() >= speedThreshold {
		r.Wake()
		return
	}
	r.LowSpeedTime += dt
	if r.LowSpeedTime >= timeThreshold {
		r.Sleep()
	}
}

// ApplyFreeze zeroes the velocity on frozen axes.
func (r *Rigidbody) ApplyFreeze() {
	if r.FreezeX {
		r.Velocity[0] = 0
	}
	if r.FreezeY {
		r.Velocity[1] = 0
	}
}
