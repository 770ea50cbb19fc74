package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/physics"
)

// LuaBehaviour forwards scene hooks to a Lua instance table. The table's
// metatable indexes the registered class, so `self` carries both per-entity
// fields and the class methods. self.entity holds the owning entity.
type LuaBehaviour struct {
	ecs.Base
	eng  *Engine
	name string
	self *lua.LTable
}

func (b *LuaBehaviour) Name() string       { return b.name }
func (b *LuaBehaviour) Table() *lua.LTable { return b.self }

func (b *LuaBehaviour) Attach(e ecs.Entity) {
	b.Base.Attach(e)
	if b.self != nil {
		b.self.RawSetString("entity", entityValue(e.ID()))
	}
}

// Dispose drops the instance table; later hooks are no-ops.
func (b *LuaBehaviour) Dispose() { b.self = nil }

func (b *LuaBehaviour) OnInit()                  { b.call("on_init") }
func (b *LuaBehaviour) OnFixedUpdate(dt float32) { b.call("on_fixed_update", lua.LNumber(dt)) }
func (b *LuaBehaviour) OnUpdate(dt float32)      { b.call("on_update", lua.LNumber(dt)) }
func (b *LuaBehaviour) OnRender(alpha float32)   { b.call("on_render", lua.LNumber(alpha)) }
func (b *LuaBehaviour) OnUIRender()              { b.call("on_ui_render") }
func (b *LuaBehaviour) OnLateUpdate(dt float32)  { b.call("on_late_update", lua.LNumber(dt)) }

func (b *LuaBehaviour) OnCollisionEnter(o ecs.Entity, m physics.Manifold) {
	b.contact("on_collision_enter", o, m)
}

func (b *LuaBehaviour) OnCollisionStay(o ecs.Entity, m physics.Manifold) {
	b.contact("on_collision_stay", o, m)
}

func (b *LuaBehaviour) OnCollisionExit(o ecs.Entity, m physics.Manifold) {
	b.contact("on_collision_exit", o, m)
}

func (b *LuaBehaviour) OnTriggerEnter(o ecs.Entity, m physics.Manifold) {
	b.contact("on_trigger_enter", o, m)
}

func (b *LuaBehaviour) OnTriggerStay(o ecs.Entity, m physics.Manifold) {
	b.contact("on_trigger_stay", o, m)
}

func (b *LuaBehaviour) OnTriggerExit(o ecs.Entity, m physics.Manifold) {
	b.contact("on_trigger_exit", o, m)
}

func (b *LuaBehaviour) OnHoverEnter() { b.call("on_hover_enter") }
func (b *LuaBehaviour) OnHoverExit()  { b.call("on_hover_exit") }
func (b *LuaBehaviour) OnFocusEnter() { b.call("on_focus_enter") }
func (b *LuaBehaviour) OnFocusExit()  { b.call("on_focus_exit") }
func (b *LuaBehaviour) OnSubmit()     { b.call("on_submit") }

// contact passes the other entity and the manifold as
// {colliding, nx, ny, penetration}.
func (b *LuaBehaviour) contact(hook string, other ecs.Entity, m physics.Manifold) {
	if b.self == nil {
		return
	}
	t := b.eng.vm.NewTable()
	t.RawSetString("colliding", lua.LBool(m.Colliding))
	t.RawSetString("nx", lua.LNumber(m.Normal[0]))
	t.RawSetString("ny", lua.LNumber(m.Normal[1]))
	t.RawSetString("penetration", lua.LNumber(m.Penetration))
	b.call(hook, entityValue(other.ID()), t)
}

// call runs self:hook(args...) when the class defines it. Runtime errors
// panic with *ScriptError.
func (b *LuaBehaviour) call(hook string, args ...lua.LValue) {
	if b.self == nil {
		return
	}
	L := b.eng.vm
	fn, ok := L.GetField(b.self, hook).(*lua.LFunction)
	if !ok {
		return
	}

	defer b.eng.enter(b.Registry(), b.name)()
	params := append([]lua.LValue{b.self}, args...)
	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, params...); err != nil {
		panic(&ScriptError{Script: b.name, Hook: hook, Err: err})
	}
}
