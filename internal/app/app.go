// Package app drives the frame loop: scene switching, the fixed-step
// accumulator and the per-frame lifecycle of every registered system.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/quadforge/engine/internal/config"
	"github.com/quadforge/engine/internal/core/profiler"
	coresys "github.com/quadforge/engine/internal/core/system"
	"github.com/quadforge/engine/internal/scene"
)

var (
	ErrUnknownScene = errors.New("unknown scene")
	ErrNoScene      = errors.New("no scene loaded")
)

// SceneFactory populates a freshly created scene.
type SceneFactory func(s *scene.Scene) error

// App owns the systems and the current scene. Everything runs on the
// goroutine that calls Run or Frame.
type App struct {
	cfg       config.EngineConfig
	log       *zap.Logger
	runner    *coresys.Runner
	prof      *profiler.Profiler
	factories map[string]SceneFactory

	current     *scene.Scene
	next        string
	initialized bool
	accumulator float32
	frames      uint64
	quit        bool
	now         func() time.Time
}

func New(cfg config.EngineConfig, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		cfg:       cfg,
		log:       log,
		runner:    coresys.NewRunner(),
		prof:      profiler.New(),
		factories: make(map[string]SceneFactory),
		now:       time.Now,
	}
}

func (a *App) Runner() *coresys.Runner       { return a.runner }
func (a *App) Profiler() *profiler.Profiler  { return a.prof }
func (a *App) Scene() *scene.Scene           { return a.current }
func (a *App) Frames() uint64                { return a.frames }
func (a *App) Quit()                         { a.quit = true }
func (a *App) Running() bool                 { return !a.quit }
func (a *App) SetClock(now func() time.Time) { a.now = now }

// RegisterSystem adds s to the frame. It is bound to the current scene
// right away when one is loaded.
func (a *App) RegisterSystem(s coresys.System) error {
	if err := a.runner.Register(s); err != nil {
		return err
	}
	a.log.Debug("system registered", zap.String("type", fmt.Sprintf("%T", s)), zap.Int("phase", int(s.Phase())))
	return nil
}

// AddScene registers a factory under name, replacing any previous one.
func (a *App) AddScene(name string, f SceneFactory) {
	a.factories[name] = f
}

// SceneNames returns the registered scene names, sorted.
func (a *App) SceneNames() []string {
	names := make([]string, 0, len(a.factories))
	for name := range a.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadScene schedules a switch to name. The switch happens at the start of
// the next frame, which is then skipped.
func (a *App) LoadScene(name string) error {
	if _, ok := a.factories[name]; !ok {
		return fmt.Errorf("load scene %q: %w", name, ErrUnknownScene)
	}
	a.next = name
	return nil
}

func (a *App) switchScene(name string) error {
	if a.current != nil {
		a.current.Exit()
		a.log.Info("scene unloaded", zap.String("scene", a.current.Name()))
		a.current = nil
	}

	s := scene.New(name, a.cfg.MaxEntities, a.log)
	a.runner.Bind(s.Registry(), s.Bus())
	if err := a.factories[name](s); err != nil {
		s.Registry().Clear()
		a.runner.Bind(nil, nil)
		return fmt.Errorf("build scene %q: %w", name, err)
	}
	s.Enter()

	a.current = s
	a.initialized = false
	a.accumulator = 0
	a.log.Info("scene loaded",
		zap.String("scene", name),
		zap.Int("entities", s.Registry().Len()),
	)
	return nil
}

// Frame advances the engine by dt seconds of wall time.
func (a *App) Frame(dt float32) error {
	if a.next != "" {
		name := a.next
		a.next = ""
		return a.switchScene(name)
	}
	s := a.current
	if s == nil {
		return ErrNoScene
	}
	a.frames++

	if !a.initialized {
		a.runner.Init()
		a.initialized = true
	}

	step := a.cfg.FixedStep()
	a.accumulator = min(a.accumulator+dt, step*float32(a.cfg.MaxFixedSteps))
	for a.accumulator >= step {
		end := a.prof.Begin("fixed_update")
		a.runner.FixedUpdate(step)
		if s.Hooks.OnFixedUpdate != nil {
			s.Hooks.OnFixedUpdate(s, step)
		}
		end()
		a.accumulator -= step
	}

	end := a.prof.Begin("update")
	a.runner.Update(dt)
	if s.Hooks.OnUpdate != nil {
		s.Hooks.OnUpdate(s, dt)
	}
	end()

	end = a.prof.Begin("render")
	a.runner.Render(a.accumulator / step)
	a.runner.UIRender()
	end()

	end = a.prof.Begin("late_update")
	a.runner.LateUpdate(dt)
	end()

	s.Bus().SwapBuffers()
	s.Bus().DispatchAll()
	return nil
}

// Run drives frames until ctx is cancelled or Quit is called, pacing them
// to the configured fps limit. The current scene is exited on return.
func (a *App) Run(ctx context.Context) error {
	if a.current == nil && a.next == "" {
		return ErrNoScene
	}

	var pace <-chan time.Time
	if interval := a.cfg.FrameInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	last := a.now()
	for !a.quit {
		select {
		case <-ctx.Done():
			a.Shutdown()
			return nil
		default:
		}

		now := a.now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		if err := a.Frame(dt); err != nil {
			a.Shutdown()
			return err
		}

		if pace != nil {
			select {
			case <-ctx.Done():
			case <-pace:
			}
		}
	}
	a.Shutdown()
	return nil
}

// Shutdown exits the current scene and reports the profiler sections.
func (a *App) Shutdown() {
	if a.current != nil {
		a.current.Exit()
		a.log.Info("scene unloaded", zap.String("scene", a.current.Name()))
		a.current = nil
	}
	a.prof.Report(a.log)
	a.log.Info("engine stopped", zap.Uint64("frames", a.frames))
}
