package scene

import (
	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/physics"
)

// Behaviour is the script surface attached to entities. Every script is
// stored under the Behaviour key, so one entity may carry several of them.
// Hooks run synchronously on the frame goroutine and may mutate the
// registry, including destroying their own entity.
type Behaviour interface {
	OnInit()
	OnFixedUpdate(dt float32)
	OnUpdate(dt float32)
	OnRender(alpha float32)
	OnUIRender()
	OnLateUpdate(dt float32)

	OnCollisionEnter(other ecs.Entity, m physics.Manifold)
	OnCollisionStay(other ecs.Entity, m physics.Manifold)
	OnCollisionExit(other ecs.Entity, m physics.Manifold)
	OnTriggerEnter(other ecs.Entity, m physics.Manifold)
	OnTriggerStay(other ecs.Entity, m physics.Manifold)
	OnTriggerExit(other ecs.Entity, m physics.Manifold)

	OnHoverEnter()
	OnHoverExit()
	OnFocusEnter()
	OnFocusExit()
	OnSubmit()
}

// Script implements every Behaviour hook as a no-op. Embed it and override
// the hooks you need.
type Script struct {
	ecs.Base
}

func (*Script) OnInit()               {}
func (*Script) OnFixedUpdate(float32) {}
func (*Script) OnUpdate(float32)      {}
func (*Script) OnRender(float32)      {}
func (*Script) OnUIRender()           {}
func (*Script) OnLateUpdate(float32)  {}

func (*Script) OnCollisionEnter(ecs.Entity, physics.Manifold) {}
func (*Script) OnCollisionStay(ecs.Entity, physics.Manifold)  {}
func (*Script) OnCollisionExit(ecs.Entity, physics.Manifold)  {}
func (*Script) OnTriggerEnter(ecs.Entity, physics.Manifold)   {}
func (*Script) OnTriggerStay(ecs.Entity, physics.Manifold)    {}
func (*Script) OnTriggerExit(ecs.Entity, physics.Manifold)    {}

func (*Script) OnHoverEnter() {}
func (*Script) OnHoverExit()  {}
func (*Script) OnFocusEnter() {}
func (*Script) OnFocusExit()  {}
func (*Script) OnSubmit()     {}

// AddBehaviour attaches b to id under the shared Behaviour key.
func AddBehaviour(r *ecs.Registry, id ecs.EntityID, b Behaviour) Behaviour {
	return ecs.AddComponent[Behaviour](r, id, b)
}

// Behaviours returns a snapshot of the scripts on id.
func Behaviours(r *ecs.Registry, id ecs.EntityID) []Behaviour {
	return ecs.GetComponents[Behaviour](r, id)
}

// EachBehaviour calls fn for every script on id. The list is snapshotted
// first, and iteration stops once a hook destroys the entity.
func EachBehaviour(r *ecs.Registry, id ecs.EntityID, fn func(Behaviour)) {
	for _, b := range Behaviours(r, id) {
		if !r.IsValidEntity(id) {
			return
		}
		fn(b)
	}
}

// ContactKind selects which collision hook to call.
type ContactKind uint8

const (
	ContactEnter ContactKind = iota
	ContactStay
	ContactExit
)

// DispatchContact calls the matching collision or trigger hook on every
// script of self.
func DispatchContact(r *ecs.Registry, self, other ecs.EntityID, kind ContactKind, trigger bool, m physics.Manifold) {
	o := ecs.NewEntity(other, r)
	EachBehaviour(r, self, func(b Behaviour) {
		switch {
		case kind == ContactEnter && trigger:
			b.OnTriggerEnter(o, m)
		case kind == ContactEnter:
			b.OnCollisionEnter(o, m)
		case kind == ContactStay && trigger:
			b.OnTriggerStay(o, m)
		case kind == ContactStay:
			b.OnCollisionStay(o, m)
		case trigger:
			b.OnTriggerExit(o, m)
		default:
			b.OnCollisionExit(o, m)
		}
	})
}
