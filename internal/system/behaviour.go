package system

import (
	"github.com/quadforge/engine/internal/core/ecs"
	coresys "github.com/quadforge/engine/internal/core/system"
	"github.com/quadforge/engine/internal/scene"
)

// BehaviourSystem forwards every lifecycle step to the scripts attached to
// entities. Phase 0 (Script).
type BehaviourSystem struct {
	coresys.Base
}

func NewBehaviourSystem() *BehaviourSystem { return &BehaviourSystem{} }

func (s *BehaviourSystem) Phase() coresys.Phase { return coresys.PhaseScript }

func (s *BehaviourSystem) Init()                  { s.each(scene.Behaviour.OnInit) }
func (s *BehaviourSystem) UIRender()              { s.each(scene.Behaviour.OnUIRender) }
func (s *BehaviourSystem) FixedUpdate(dt float32) { s.each(func(b scene.Behaviour) { b.OnFixedUpdate(dt) }) }
func (s *BehaviourSystem) Update(dt float32)      { s.each(func(b scene.Behaviour) { b.OnUpdate(dt) }) }
func (s *BehaviourSystem) Render(alpha float32)   { s.each(func(b scene.Behaviour) { b.OnRender(alpha) }) }
func (s *BehaviourSystem) LateUpdate(dt float32)  { s.each(func(b scene.Behaviour) { b.OnLateUpdate(dt) }) }

// each snapshots the scripted entities so hooks may create or destroy
// entities while the step runs.
func (s *BehaviourSystem) each(fn func(scene.Behaviour)) {
	reg := s.Registry()
	if reg == nil {
		return
	}
	for _, id := range ecs.With[scene.Behaviour](reg) {
		scene.EachBehaviour(reg, id, fn)
	}
}

// Action is a UI interaction routed to an entity's scripts.
type Action uint8

const (
	ActionHoverEnter Action = iota
	ActionHoverExit
	ActionFocusEnter
	ActionFocusExit
	ActionSubmit
)

// Send dispatches a UI action to every script on id. Stale handles are
// ignored.
func (s *BehaviourSystem) Send(id ecs.EntityID, a Action) {
	reg := s.Registry()
	if reg == nil || !reg.IsValidEntity(id) {
		return
	}
	scene.EachBehaviour(reg, id, func(b scene.Behaviour) {
		switch a {
		case ActionHoverEnter:
			b.OnHoverEnter()
		case ActionHoverExit:
			b.OnHoverExit()
		case ActionFocusEnter:
			b.OnFocusEnter()
		case ActionFocusExit:
			b.OnFocusExit()
		case ActionSubmit:
			b.OnSubmit()
		}
	})
}
