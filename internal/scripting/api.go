package scripting

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/physics"
	"github.com/quadforge/engine/internal/scene"
)

// Entity handles cross into Lua as numbers. They stay exact while the
// generation is below 2^21.
func entityValue(id ecs.EntityID) lua.LNumber { return lua.LNumber(float64(uint64(id))) }

func checkEntity(L *lua.LState, n int) ecs.EntityID {
	return ecs.EntityID(uint64(L.CheckNumber(n)))
}

// apiTable builds the global `engine` table.
func (e *Engine) apiTable() *lua.LTable {
	return e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"log":          e.apiLog,
		"is_valid":     e.apiIsValid,
		"destroy":      e.apiDestroy,
		"has_tag":      e.apiHasTag,
		"add_tag":      e.apiAddTag,
		"position":     e.apiPosition,
		"set_position": e.apiSetPosition,
		"velocity":     e.apiVelocity,
		"set_velocity": e.apiSetVelocity,
		"add_impulse":  e.apiAddImpulse,
	})
}

// registry returns the registry of the running hook, raising a Lua error
// when engine.* is called outside of one.
func (e *Engine) registry(L *lua.LState) *ecs.Registry {
	if e.reg == nil {
		L.RaiseError("engine API called outside a behaviour hook")
	}
	return e.reg
}

func (e *Engine) apiLog(L *lua.LState) int {
	msg := L.CheckString(1)
	e.log.Info(msg, zap.String("script", e.script))
	return 0
}

func (e *Engine) apiIsValid(L *lua.LState) int {
	L.Push(lua.LBool(e.registry(L).IsValidEntity(checkEntity(L, 1))))
	return 1
}

// engine.destroy(id) destroys immediately; stale handles are ignored.
func (e *Engine) apiDestroy(L *lua.LState) int {
	reg, id := e.registry(L), checkEntity(L, 1)
	if reg.IsValidEntity(id) {
		reg.DestroyEntity(id)
	}
	return 0
}

func (e *Engine) apiHasTag(L *lua.LState) int {
	reg, id := e.registry(L), checkEntity(L, 1)
	L.Push(lua.LBool(reg.IsValidEntity(id) && reg.HasTag(id, L.CheckString(2))))
	return 1
}

func (e *Engine) apiAddTag(L *lua.LState) int {
	reg, id := e.registry(L), checkEntity(L, 1)
	tag := L.CheckString(2)
	if reg.IsValidEntity(id) {
		reg.AddTag(id, tag)
	}
	return 0
}

func (e *Engine) apiPosition(L *lua.LState) int {
	t := mustComponent[*scene.Transform](e, L, "transform")
	L.Push(lua.LNumber(t.Position[0]))
	L.Push(lua.LNumber(t.Position[1]))
	return 2
}

// engine.set_position teleports: interpolation does not smear the jump.
func (e *Engine) apiSetPosition(L *lua.LState) int {
	t := mustComponent[*scene.Transform](e, L, "transform")
	p := mgl32.Vec2{float32(L.CheckNumber(2)), float32(L.CheckNumber(3))}
	t.Position, t.LastPosition = p, p
	return 0
}

func (e *Engine) apiVelocity(L *lua.LState) int {
	rb := mustComponent[*physics.Rigidbody](e, L, "rigidbody")
	L.Push(lua.LNumber(rb.Velocity[0]))
	L.Push(lua.LNumber(rb.Velocity[1]))
	return 2
}

func (e *Engine) apiSetVelocity(L *lua.LState) int {
	rb := mustComponent[*physics.Rigidbody](e, L, "rigidbody")
	rb.SetVelocity(mgl32.Vec2{float32(L.CheckNumber(2)), float32(L.CheckNumber(3))})
	return 0
}

func (e *Engine) apiAddImpulse(L *lua.LState) int {
	rb := mustComponent[*physics.Rigidbody](e, L, "rigidbody")
	rb.AddImpulse(mgl32.Vec2{float32(L.CheckNumber(2)), float32(L.CheckNumber(3))})
	return 0
}

// mustComponent fetches the T of the entity in argument 1 or raises a Lua
// error naming what is missing.
func mustComponent[T any](e *Engine, L *lua.LState, what string) T {
	reg, id := e.registry(L), checkEntity(L, 1)
	if !reg.IsValidEntity(id) {
		L.RaiseError("%s: invalid entity %s", what, id)
	}
	c, ok := ecs.TryGetComponent[T](reg, id)
	if !ok {
		L.ArgError(1, fmt.Sprintf("entity %s has no %s", id, what))
	}
	return c
}
