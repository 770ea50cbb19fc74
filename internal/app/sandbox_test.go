package app

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"

	"github.com/quadforge/engine/internal/config"
	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/data"
	"github.com/quadforge/engine/internal/physics"
	"github.com/quadforge/engine/internal/scene"
	"github.com/quadforge/engine/internal/scripting"
	"github.com/quadforge/engine/internal/system"
)

// Runs the shipped sandbox scene with the shipped scripts for three
// simulated seconds.
func TestSandboxSceneRuns(t *testing.T) {
	log := zaptest.NewLogger(t)
	cfg, err := config.Load("../../config/engine.toml")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Physics.Seed = 42

	scripts, err := scripting.NewEngine("../../scripts", log)
	if err != nil {
		t.Fatal(err)
	}
	defer scripts.Close()
	file, err := data.LoadScene("../../data/scenes/sandbox.yaml")
	if err != nil {
		t.Fatal(err)
	}

	a := New(cfg.Engine, log)
	phys := system.NewPhysicsSystem(cfg.Physics, log)
	if err := a.RegisterSystem(system.NewBehaviourSystem()); err != nil {
		t.Fatal(err)
	}
	if err := a.RegisterSystem(phys); err != nil {
		t.Fatal(err)
	}
	if err := a.RegisterSystem(system.NewCleanupSystem(log)); err != nil {
		t.Fatal(err)
	}

	var named map[string]ecs.EntityID
	a.AddScene(file.Name, func(s *scene.Scene) error {
		var err error
		named, err = data.Spawn(s, file, scripts)
		return err
	})
	if err := a.LoadScene(file.Name); err != nil {
		t.Fatal(err)
	}

	step := cfg.Engine.FixedStep()
	for i := 0; i < 3*cfg.Engine.FixedStepRate+1; i++ {
		if err := a.Frame(step); err != nil {
			t.Fatal(err)
		}
	}

	reg := a.Scene().Registry()
	ball := named["ball"]
	b := scene.Behaviours(reg, ball)[0].(*scripting.LuaBehaviour)
	if n, ok := b.Table().RawGetString("bounces").(lua.LNumber); !ok || n < 1 {
		t.Fatalf("ball bounces = %v, want at least one floor contact", b.Table().RawGetString("bounces"))
	}

	floor := ecs.GetComponent[*scene.Transform](reg, named["floor"])
	if floor.Position != (mgl32.Vec2{0, -250}) {
		t.Fatalf("kinematic floor moved to %v", floor.Position)
	}
	crate := ecs.GetComponent[*scene.Transform](reg, named["crate_a"])
	if crate.Position[1] < -250 {
		t.Fatalf("crate fell through the floor: y = %v", crate.Position[1])
	}
	if phys.Stats().Bodies != 7 {
		t.Fatalf("bodies = %d, want 7", phys.Stats().Bodies)
	}
	if rb := ecs.GetComponent[*physics.Rigidbody](reg, named["crate_a"]); !rb.OnGround && !rb.Sleeping {
		t.Fatal("bottom crate neither grounded nor asleep")
	}
}
