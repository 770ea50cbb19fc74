package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap/zaptest"

	"github.com/quadforge/engine/internal/config"
	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/core/event"
	coresys "github.com/quadforge/engine/internal/core/system"
	"github.com/quadforge/engine/internal/scene"
)

// 1/64 s keeps every accumulator value exact in float32.
const step = float32(1) / 64

type counter struct {
	coresys.Base
	init, fixed, update, late int
	alphas                    []float32
	onUpdate                  func(n int)
}

func (c *counter) Phase() coresys.Phase { return coresys.PhaseScript }
func (c *counter) Init()                { c.init++ }
func (c *counter) FixedUpdate(float32)  { c.fixed++ }
func (c *counter) Render(alpha float32) { c.alphas = append(c.alphas, alpha) }
func (c *counter) LateUpdate(float32)   { c.late++ }

func (c *counter) Update(float32) {
	c.update++
	if c.onUpdate != nil {
		c.onUpdate(c.update)
	}
}

func testConfig() config.EngineConfig {
	cfg := config.Default().Engine
	cfg.FixedStepRate = 64
	cfg.MaxFixedSteps = 5
	cfg.FPSLimit = 0
	cfg.MaxEntities = 64
	return cfg
}

func quadScene(s *scene.Scene) error {
	_, err := s.CreateQuad(mgl32.Vec2{}, mgl32.Vec2{10, 10})
	return err
}

func newTestApp(t *testing.T) (*App, *counter) {
	t.Helper()
	a := New(testConfig(), zaptest.NewLogger(t))
	c := &counter{}
	if err := a.RegisterSystem(c); err != nil {
		t.Fatal(err)
	}
	a.AddScene("main", quadScene)
	a.AddScene("other", quadScene)
	if err := a.LoadScene("main"); err != nil {
		t.Fatal(err)
	}
	return a, c
}

func TestLoadSceneUnknown(t *testing.T) {
	a := New(testConfig(), zaptest.NewLogger(t))
	if err := a.LoadScene("missing"); !errors.Is(err, ErrUnknownScene) {
		t.Fatalf("err = %v, want ErrUnknownScene", err)
	}
	if err := a.Frame(step); !errors.Is(err, ErrNoScene) {
		t.Fatalf("frame without scene: err = %v", err)
	}
}

func TestSwitchingFrameIsSkipped(t *testing.T) {
	a, c := newTestApp(t)

	if err := a.Frame(step); err != nil {
		t.Fatal(err)
	}
	if a.Scene() == nil || a.Scene().Name() != "main" {
		t.Fatal("scene not loaded on first frame")
	}
	if c.init != 0 || c.fixed != 0 || c.update != 0 {
		t.Fatalf("switching frame ran systems: %+v", c)
	}
	if a.Scene().Registry().Len() != 1 {
		t.Fatal("factory entities missing")
	}

	if err := a.Frame(step); err != nil {
		t.Fatal(err)
	}
	if c.init != 1 || c.fixed != 1 || c.update != 1 || c.late != 1 {
		t.Fatalf("after one frame: init=%d fixed=%d update=%d late=%d", c.init, c.fixed, c.update, c.late)
	}
	a.Frame(step)
	if c.init != 1 {
		t.Fatal("Init ran more than once per scene")
	}
}

func TestAccumulatorClampsAndInterpolates(t *testing.T) {
	a, c := newTestApp(t)
	a.Frame(0)

	a.Frame(1) // a full second of lag
	if c.fixed != 5 {
		t.Fatalf("fixed steps = %d, want clamp at 5", c.fixed)
	}

	a.Frame(step * 1.5)
	if c.fixed != 6 {
		t.Fatalf("fixed steps = %d, want 6", c.fixed)
	}
	if alpha := c.alphas[len(c.alphas)-1]; alpha != 0.5 {
		t.Fatalf("alpha = %v, want 0.5", alpha)
	}

	a.Frame(step / 4)
	if c.fixed != 6 {
		t.Fatal("partial step ran a fixed update")
	}
	if alpha := c.alphas[len(c.alphas)-1]; alpha != 0.75 {
		t.Fatalf("alpha = %v, want 0.75", alpha)
	}
}

func TestSceneSwitchReinitializes(t *testing.T) {
	a, c := newTestApp(t)
	a.Frame(step)
	a.Frame(step)

	old := a.Scene()
	var unloaded []string
	event.Subscribe(old.Bus(), func(e event.SceneUnloaded) { unloaded = append(unloaded, e.Name) })

	if err := a.LoadScene("other"); err != nil {
		t.Fatal(err)
	}
	if a.Scene() != old {
		t.Fatal("LoadScene switched immediately")
	}
	a.Frame(step)
	if a.Scene().Name() != "other" {
		t.Fatalf("scene = %q", a.Scene().Name())
	}
	if old.Registry().Len() != 0 {
		t.Fatal("old registry not cleared")
	}
	if len(unloaded) != 1 || unloaded[0] != "main" {
		t.Fatalf("unloaded events = %v", unloaded)
	}

	a.Frame(step)
	if c.init != 2 {
		t.Fatalf("init = %d, want once per scene", c.init)
	}
	if c.Registry() != a.Scene().Registry() {
		t.Fatal("system not rebound to the new scene")
	}
}

func TestFactoryErrorStopsFrame(t *testing.T) {
	a, c := newTestApp(t)
	boom := errors.New("boom")
	res := &resource{}
	a.AddScene("bad", func(s *scene.Scene) error {
		if err := quadScene(s); err != nil {
			return err
		}
		e, err := s.CreateEntity(scene.PrimitiveEmpty)
		if err != nil {
			return err
		}
		ecs.AddComponent(s.Registry(), e.ID(), res)
		return boom
	})
	a.LoadScene("bad")
	if err := a.Frame(step); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want factory error", err)
	}
	if !res.disposed {
		t.Fatal("partly built scene was not cleared")
	}
	if c.Registry() != nil {
		t.Fatal("systems still bound to the failed scene")
	}
	if err := a.Frame(step); !errors.Is(err, ErrNoScene) {
		t.Fatalf("err after failed load = %v, want ErrNoScene", err)
	}
}

type resource struct{ disposed bool }

func (r *resource) Dispose() { r.disposed = true }

func TestSceneHooksRun(t *testing.T) {
	a := New(testConfig(), zaptest.NewLogger(t))
	var entered, fixed, updated int
	a.AddScene("hooks", func(s *scene.Scene) error {
		s.Hooks = scene.Hooks{
			OnEnter:       func(*scene.Scene) { entered++ },
			OnFixedUpdate: func(*scene.Scene, float32) { fixed++ },
			OnUpdate:      func(*scene.Scene, float32) { updated++ },
		}
		return nil
	})
	a.LoadScene("hooks")
	a.Frame(0)
	a.Frame(step * 2)
	if entered != 1 || fixed != 2 || updated != 1 {
		t.Fatalf("entered=%d fixed=%d updated=%d", entered, fixed, updated)
	}
	if names := a.SceneNames(); len(names) != 1 || names[0] != "hooks" {
		t.Fatalf("scene names = %v", names)
	}
}

func TestRunUntilQuit(t *testing.T) {
	a, c := newTestApp(t)
	now := time.Unix(0, 0)
	a.SetClock(func() time.Time {
		now = now.Add(time.Second / 64)
		return now
	})
	c.onUpdate = func(n int) {
		if n == 3 {
			a.Quit()
		}
	}

	if err := a.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.update != 3 || a.Frames() != 3 {
		t.Fatalf("update=%d frames=%d, want 3", c.update, a.Frames())
	}
	if a.Scene() != nil {
		t.Fatal("scene still loaded after Run returned")
	}
	if len(a.Profiler().Sections()) == 0 {
		t.Fatal("no profiler sections recorded")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if a.Frames() != 0 {
		t.Fatalf("frames = %d after cancelled run", a.Frames())
	}

	empty := New(testConfig(), zaptest.NewLogger(t))
	if err := empty.Run(context.Background()); !errors.Is(err, ErrNoScene) {
		t.Fatalf("err = %v, want ErrNoScene", err)
	}
}
