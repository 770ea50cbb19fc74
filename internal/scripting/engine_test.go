package scripting

import (
	"errors"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"

	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/physics"
	"github.com/quadforge/engine/internal/scene"
)

func newTestEngine(t *testing.T, src string) *Engine {
	t.Helper()
	e, err := NewEngine(t.TempDir(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	if err := e.LoadString(src); err != nil {
		t.Fatal(err)
	}
	return e
}

func attach(t *testing.T, e *Engine, s *scene.Scene, id ecs.EntityID, name string) *LuaBehaviour {
	t.Helper()
	b, err := e.NewBehaviour(name)
	if err != nil {
		t.Fatal(err)
	}
	return scene.AddBehaviour(s.Registry(), id, b).(*LuaBehaviour)
}

func expectScriptError(t *testing.T, hook string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		var se *ScriptError
		if !ok || !errors.As(err, &se) {
			t.Fatalf("recovered %v, want *ScriptError", r)
		}
		if se.Hook != hook {
			t.Fatalf("hook = %q, want %q", se.Hook, hook)
		}
	}()
	fn()
}

func TestShippedScriptsLoad(t *testing.T) {
	e, err := NewEngine("../../scripts", zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	names := e.Behaviours()
	if !slices.Contains(names, "bouncer") || !slices.Contains(names, "sensor") {
		t.Fatalf("behaviours = %v", names)
	}
}

func TestBouncerKicksOffGround(t *testing.T) {
	e, err := NewEngine("../../scripts", zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	s := scene.New("lua", 8, zaptest.NewLogger(t))
	reg := s.Registry()
	ball, _ := s.CreateQuad(mgl32.Vec2{}, mgl32.Vec2{10, 10})
	floor, _ := s.CreateQuad(mgl32.Vec2{0, -10}, mgl32.Vec2{100, 10})
	floor.AddTag("ground")
	ecs.GetComponent[*physics.Rigidbody](reg, ball.ID()).Velocity = mgl32.Vec2{3, -2}

	b := attach(t, e, s, ball.ID(), "bouncer")
	b.OnInit()
	b.OnCollisionEnter(floor, physics.Manifold{Colliding: true, Normal: mgl32.Vec2{0, -1}, Penetration: 1})

	rb := ecs.GetComponent[*physics.Rigidbody](reg, ball.ID())
	if rb.Velocity != (mgl32.Vec2{3, 4}) {
		t.Fatalf("velocity = %v, want (3,4)", rb.Velocity)
	}
	if n := b.Table().RawGetString("bounces"); n != lua.LNumber(1) {
		t.Fatalf("bounces = %v", n)
	}
	if id := b.Table().RawGetString("entity"); id != entityValue(ball.ID()) {
		t.Fatalf("self.entity = %v", id)
	}
}

func TestManifoldAndHandlesReachLua(t *testing.T) {
	e := newTestEngine(t, `
behaviour("watcher", {
  on_trigger_enter = function(self, other, m)
    self.nx, self.ny, self.pen, self.hit = m.nx, m.ny, m.penetration, m.colliding
    self.other_valid = engine.is_valid(other)
    engine.destroy(other)
    self.other_after = engine.is_valid(other)
  end,
  on_trigger_exit = function(self, other, m)
    self.exit_colliding = m.colliding
  end,
})`)
	s := scene.New("watcher", 8, zaptest.NewLogger(t))
	self, _ := s.CreateEntity(scene.PrimitiveEmpty)
	other, _ := s.CreateEntity(scene.PrimitiveEmpty)
	b := attach(t, e, s, self.ID(), "watcher")

	b.OnTriggerEnter(other, physics.Manifold{Colliding: true, Normal: mgl32.Vec2{1, 0}, Penetration: 0.5})
	b.OnTriggerExit(other, physics.Manifold{})

	tbl := b.Table()
	if tbl.RawGetString("nx") != lua.LNumber(1) || tbl.RawGetString("ny") != lua.LNumber(0) ||
		tbl.RawGetString("pen") != lua.LNumber(0.5) || tbl.RawGetString("hit") != lua.LTrue {
		t.Fatal("manifold fields not passed through")
	}
	if tbl.RawGetString("other_valid") != lua.LTrue || tbl.RawGetString("other_after") != lua.LFalse {
		t.Fatal("engine.destroy did not invalidate the handle")
	}
	if tbl.RawGetString("exit_colliding") != lua.LFalse {
		t.Fatal("exit manifold reported colliding")
	}
	if s.Registry().IsValidEntity(other.ID()) {
		t.Fatal("entity survived engine.destroy")
	}
}

func TestSelfDestroyDisposesBehaviour(t *testing.T) {
	e := newTestEngine(t, `
behaviour("doomed", {
  on_update = function(self, dt)
    engine.destroy(self.entity)
  end,
  on_late_update = function(self, dt)
    error("hook ran after destroy")
  end,
})`)
	s := scene.New("doomed", 8, zaptest.NewLogger(t))
	ent, _ := s.CreateEntity(scene.PrimitiveEmpty)
	b := attach(t, e, s, ent.ID(), "doomed")

	b.OnUpdate(0.016)
	if ent.IsValid() {
		t.Fatal("entity still valid")
	}
	if b.Table() != nil {
		t.Fatal("instance table kept after dispose")
	}
	b.OnLateUpdate(0.016)
}

func TestRuntimeErrorsPanic(t *testing.T) {
	e := newTestEngine(t, `
behaviour("broken", {
  on_submit = function(self)
    error("boom")
  end,
  on_hover_enter = function(self)
    engine.set_velocity(self.entity, 1, 1)
  end,
})`)
	s := scene.New("broken", 8, zaptest.NewLogger(t))
	ent, _ := s.CreateEntity(scene.PrimitiveEmpty)
	b := attach(t, e, s, ent.ID(), "broken")

	expectScriptError(t, "on_submit", b.OnSubmit)
	expectScriptError(t, "on_hover_enter", b.OnHoverEnter) // no rigidbody

	b.OnFocusEnter() // undefined hooks are skipped
}

func TestUnknownBehaviour(t *testing.T) {
	e := newTestEngine(t, "")
	if _, err := e.NewBehaviour("ghost"); !errors.Is(err, ErrUnknownScript) {
		t.Fatalf("err = %v, want ErrUnknownScript", err)
	}
	if err := e.LoadString(`engine.is_valid(1)`); err == nil {
		t.Fatal("engine API usable outside a hook")
	}
	if err := e.LoadString(`behaviour("bad")`); err == nil {
		t.Fatal("behaviour without a class table accepted")
	}
}

func TestInstancesDoNotShareState(t *testing.T) {
	e := newTestEngine(t, `
behaviour("counter", {
  on_update = function(self, dt)
    self.n = (self.n or 0) + 1
  end,
})`)
	s := scene.New("counter", 8, zaptest.NewLogger(t))
	a, _ := s.CreateEntity(scene.PrimitiveEmpty)
	b, _ := s.CreateEntity(scene.PrimitiveEmpty)
	ba := attach(t, e, s, a.ID(), "counter")
	bb := attach(t, e, s, b.ID(), "counter")

	ba.OnUpdate(0)
	ba.OnUpdate(0)
	bb.OnUpdate(0)
	if ba.Table().RawGetString("n") != lua.LNumber(2) || bb.Table().RawGetString("n") != lua.LNumber(1) {
		t.Fatal("instance state leaked between behaviours")
	}
}
